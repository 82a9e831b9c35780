package main

import "tarik-chat-be/internal/cli"

func main() {
	cli.Execute()
}
