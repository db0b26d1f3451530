package main

import (
	"os"

	"github.com/information-sharing-networks/verifiedid-demo/internal/cli"
	"github.com/information-sharing-networks/verifiedid-demo/internal/config"
)

//	@title			issuer-server
//	@description	issuer-server issues Verified ID credentials to signed in users.
//	@description
//	@description	## Authentication
//	@description	The issuance and user endpoints require the identity headers injected by the hosting platform
//	@description	(X-MS-CLIENT-PRINCIPAL or X-MS-CLIENT-PRINCIPAL-ID). Requests without them get 401.
//	@description
//	@description	The callback endpoint is called by the credential platform. When CALLBACK_API_KEY is set
//	@description	the api-key header must match.
//	@description
//	@description	## Common Error Responses
//	@description	All endpoints may return:
//	@description	- `413` Request body exceeds size limit
//	@description	- `429` Rate limit exceeded
//	@description	- `500` Internal server error
//	@license.name	MIT

//	@servers.url			http://localhost:8080
//	@servers.description	Development server

//	@tag.name			Issuance
//	@tag.description	Credential issuance for the signed in user

//	@tag.name			Callbacks
//	@tag.description	Status callbacks from the credential platform

//	@tag.name			Common
//	@tag.description	Landing page, health, version and request status

func main() {
	cmd := cli.NewServerCommand(config.ServiceIssuer, "Verified ID credential issuer")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
