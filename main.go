package main

import "github.com/douyin-rboot/droidrun-portal/cmd"

func main() {
	cmd.Execute()
}
