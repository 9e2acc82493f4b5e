package main

import (
	_ "github.com/joho/godotenv/autoload" // Autoload .env file.

	"github.com/gettruefans/truefans-api/cmd/app"
)

// @title           TrueFans API
// @version         1.0
// @description     Digital loyalty passes for restaurant brands.
// @termsOfService  http://swagger.io/terms/
//
// @contact.name   API Support
//
// @BasePath  /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token
//
// @externalDocs.description  OpenAPI
// @externalDocs.url          https://swagger.io/resources/open-api/
func main() {
	if err := app.Start(); err != nil {
		panic(err)
	}
}
