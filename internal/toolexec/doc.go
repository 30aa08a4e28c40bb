// Package toolexec runs the external recipe programs (splitter, data prep,
// segmentation) and folds their output into the structured log.
package toolexec
