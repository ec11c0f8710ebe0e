package main

import "github.com/ValentinKolb/dCRUD/cmd"

func main() {
	cmd.Execute()
}
