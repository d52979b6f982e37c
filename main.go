package main

import "github.com/ValentinKolb/xdcrlag/cmd"

func main() {
	cmd.Execute()
}
