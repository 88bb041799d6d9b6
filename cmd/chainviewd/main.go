// chainviewd fronts a fleet of blockchain client nodes with a node-aware
// RPC gateway and probes seed endpoints for liveness.
package main

func main() {
	Execute()
}
