package handler

const (
	errInternalServer  = "Internal server error"
	errJobNotFound     = "Job not found"
	errPackageNotFound = "No downloadable package for this ID"
)
