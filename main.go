package main

import "loan-calculator/cli"

func main() {
	cli.Execute()
}
