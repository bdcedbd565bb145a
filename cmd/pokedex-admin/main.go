package main

import "github.com/Mateusz-G541/pokedex-auth-service/cmd/cli"

func main() {
	cli.Execute()
}
