package main

import "guapassist-backend/cmd/guap-cli/cmd"

func main() {
	cmd.Execute()
}
