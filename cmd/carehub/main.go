// Package main is the entry point for carehub.
package main

func main() {
	Execute()
}
