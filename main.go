package main

import "github.com/frahmantamala/hrm-access/cmd"

func main() {
	cmd.Execute()
}
