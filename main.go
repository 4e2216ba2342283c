package main

import "github.com/ssolovyev/tetatet/cmd/server"

func main() {
	server.NewServer().Run()
}
