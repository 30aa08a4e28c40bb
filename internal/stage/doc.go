// Package stage defines the contract between the runner and the numbered
// stage bodies, along with the stage range gate and the partition layout.
package stage
