package main

import "relief_backend/internal/app"

func main() {
	app.Run()
}
