package main

import "github.com/conorfennell/taxtutor/cmd/taxtutor/root"

func main() {
	root.Execute()
}
