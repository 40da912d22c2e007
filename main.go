package main

import "github.com/headers-cz/sec-phantomraven-checker/cmd"

func main() {
	cmd.Execute()
}
