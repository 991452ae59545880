package main

import "github.com/shaharia-lab/inboxmailer/cmd"

func main() {
	cmd.Execute()
}
