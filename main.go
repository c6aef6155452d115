package main

import "github.com/andresmejia3/facetrack/cmd"

func main() {
	cmd.Execute()
}
