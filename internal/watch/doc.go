// Package watch maps file system changes to actions.
//
// A Dispatcher owns one fsnotify watcher for the whole tree and one worker
// per rule. A change that matches a rule records its path and pokes the
// rule's worker through a single-slot trigger. The worker waits for the
// debounce delay, takes every recorded path and runs the action once. A
// change that lands while the action runs leaves the trigger set, so the
// action runs exactly once more with the new paths: changes are coalesced,
// never lost. Rules are independent and have no ordering between them.
package watch
