package oracle

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a senior Python web-scraping engineer inside an automated agent.
Your only output is a single JSON object with keys "scraper_py" and "requirements_txt".

Requirements for scraper_py:
- A complete, self-contained script runnable as "python scraper.py".
- It must fetch fresh content from TARGET_URL; the HTML_SNAPSHOT below is a
  static sample for devising selectors, never the data source.
- Print the extracted data to stdout as a single JSON string via json.dumps(),
  structured as a list of dictionaries. Print [] when nothing is found.
- Default to static scraping with requests + beautifulsoup4 (lxml parser).
  Switch to playwright only when the failure history shows the page is a
  dynamically rendered application.
- Send a full set of realistic browser headers and use randomized delays
  between requests.
- Wrap network and parsing code in try/except so unexpected structure does
  not crash the script.

Requirements for requirements_txt:
- Every non-standard library the script imports, one per line, nothing more.

If FAILED_ATTEMPTS are present they are your highest priority: identify the
root cause of the most recent failure from its reason, stdout and stderr, and
produce a corrected script that does not repeat it.`

// buildPrompt assembles the user-side prompt: target, objective, optional
// structure map, the HTML excerpt, and the cumulative failure history in
// attempt order.
func buildPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "TARGET_URL: %s\n\n", req.URL)
	fmt.Fprintf(&b, "USER_REQUEST: %s\n\n", req.Objective)

	if req.Outline != "" {
		fmt.Fprintf(&b, "HTML_STRUCTURE_MAP:\n%s\n\n", req.Outline)
	}

	fmt.Fprintf(&b, "HTML_SNAPSHOT:\n%s\n", req.Excerpt)

	if len(req.History) > 0 {
		b.WriteString("\nFAILED_ATTEMPTS:\n")
		for _, att := range req.History {
			fmt.Fprintf(&b, "--- attempt %d failed ---\n", att.Index+1)
			fmt.Fprintf(&b, "REASON: %s\n", att.Reason)
			fmt.Fprintf(&b, "FAILED_CODE:\n```python\n%s\n```\n", att.Artifact.Script)
			fmt.Fprintf(&b, "STDOUT:\n```\n%s\n```\n", att.Stdout)
			fmt.Fprintf(&b, "STDERR:\n```\n%s\n```\n", att.Stderr)
		}
		b.WriteString("\nAnalyze the failed attempts above and generate an improved version that fixes the issues.\n")
	}

	return b.String()
}
