package main

import (
	"os"

	"github.com/information-sharing-networks/verifiedid-demo/internal/cli"
	"github.com/information-sharing-networks/verifiedid-demo/internal/config"
)

//	@title			verifier-server
//	@description	verifier-server asks wallets to present a Verified ID credential and reports the verified claims.
//	@description
//	@description	The endpoints are unauthenticated. The callback endpoint is called by the credential platform;
//	@description	when CALLBACK_API_KEY is set the api-key header must match.
//	@license.name	MIT

//	@servers.url			http://localhost:8080
//	@servers.description	Development server

//	@tag.name			Verification
//	@tag.description	Presentation requests

//	@tag.name			Callbacks
//	@tag.description	Status callbacks from the credential platform

//	@tag.name			Common
//	@tag.description	Landing page, health, version and request status

func main() {
	cmd := cli.NewServerCommand(config.ServiceVerifier, "Verified ID credential verifier")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
