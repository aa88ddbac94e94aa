// Package failure defines the error taxonomy shared by tasks, transforms and
// the executor.
//
// Every failure surfaced by a pipeline run belongs to one of three kinds:
// a transform library rejected its input (ErrTransform), a path was missing
// or unwritable (ErrFilesystem), or a remote collaborator such as the image
// compression service was unreachable or refused the credential
// (ErrExternalService). A TaskError ties a kind to the task that produced it,
// and a GroupError collects every failed member of a parallel group.
package failure
