// Package submission runs the operator actions against the execution service.
//
// Creating or editing a test compiles the form, uploads the chosen script to
// the object store and submits the payload:
//
//	svc := submission.New(client, objects,
//		submission.WithPolicy(submission.UploadStrict),
//		submission.WithLogger(log),
//	)
//	res, err := svc.Create(ctx, form)
//
// Upload failures follow the configured policy. With UploadBestEffort the
// failure is logged and the submission goes ahead; with UploadStrict nothing
// is submitted.
//
// Start, cancel, edit and delete check the lifecycle rules against a freshly
// fetched record and task list. A refusal wraps ErrRefused:
//
//	if errors.Is(err, submission.ErrRefused) {
//		// not allowed in the current state
//	}
package submission
