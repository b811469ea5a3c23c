package main

import "github.com/okamurashp/orgkeeper/cmd"

func main() {
	cmd.Execute()
}
