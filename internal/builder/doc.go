/*
Package builder turns the configured tasks of a config.Model into runnable
task.Task descriptors.

Every kind of task is prepared up front: transform kinds are looked up in the
registry and their option bodies decoded, and watch rules are bound to the
tasks they trigger. A configuration mistake therefore fails before anything
runs.

  - pipe: expand sources, read them, run the transform chain and write the
    results under dest. Nothing is written unless the whole chain succeeds.
    When reload is set, connected browsers are notified afterwards.
  - clean: remove paths and globs. Missing targets are fine.
  - serve: start the development server in the session and block until the
    context ends.
  - watch: start a watch dispatcher in the session and block until the
    context ends.
*/
package builder
