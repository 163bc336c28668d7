package main

import "botchat/cmd"

func main() {
	cmd.Execute()
}
