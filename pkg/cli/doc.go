/*
Package cli provides command-line helpers for the kone command.

Output Formatting:

Command results can be printed as text, JSON or CSV. Results implementing
Tabular render as aligned columns in text mode and as rows in CSV mode:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Progress Reporting:

A one-off health check reports progress per model:

	progress := cli.NewUnitProgressReporter(os.Stderr, "models")
	progress.Start(int64(len(models)))
	// ...
	progress.Update(done)
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Exit Codes:

Commands return *ExitError when the outcome decides the exit status, for
example a check that found failing models. main passes the error to
ExitCode.
*/
package cli
