// Package dashboard implements the analysis page workflow: validating a submitted
// URL, running the audit, presenting the five category scores and saving them.
//
// Each browser session owns one Workflow. All workflows share the process-wide
// urlstore.Store, which decides whether a save creates a url row or only a result
// row. A Workflow moves through idle, analyzing, result, saving and saved; Close
// returns it to idle from any settled state.
package dashboard
