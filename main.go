package main

import "transcode-worker/cmd"

func main() {
	cmd.Execute()
}
