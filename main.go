package main

import "github.com/agentic-sandbox/podsnapshot/cmd"

func main() {
	cmd.Execute()
}
