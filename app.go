package main

import "github.com/theabolton/kroftig-backend/cmd"

func main() {
	cmd.Run()
}
