package exitcode

const (
	Success     = 0
	UsageError  = 1
	LoadError   = 2
	DeriveError = 3
	FitError    = 4
	PlotError   = 5
	DBConnError = 6
	ExportError = 7
)
