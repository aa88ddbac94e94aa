// Package cli turns the assetgrid command line into an app.Config plus the
// entry to run: a pipeline name, a single task, or a listing. Usage and
// validation errors surface as an ExitError carrying exit code 2.
package cli
