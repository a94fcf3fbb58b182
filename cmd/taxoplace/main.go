// Command taxoplace builds, normalizes, and queries a taxonomic
// placement index.
package main

func main() {
	Execute()
}
