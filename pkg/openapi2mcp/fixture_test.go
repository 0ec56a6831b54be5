package openapi2mcp

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/require"
)

const petstoreSpec = `
openapi: 3.0.0
info:
  title: Petstore
  version: 1.0.0
servers:
  - url: https://petstore.example.com/v1/
paths:
  /pets:
    get:
      operationId: listPets
      summary: List pets
      tags: [pets]
      parameters:
        - name: limit
          in: query
          schema:
            type: integer
        - name: tags
          in: query
          schema:
            type: array
            items:
              type: string
        - name: filter[status]
          in: query
          schema:
            type: string
            enum: [available, sold]
        - name: X-Trace
          in: header
          schema:
            type: string
      responses:
        '200':
          description: OK
    post:
      operationId: createPet
      summary: Create a pet
      tags: [pets]
      requestBody:
        required: true
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/NewPet'
      responses:
        '201':
          description: Created
  /pets/{petId}:
    parameters:
      - name: petId
        in: path
        required: true
        schema:
          type: string
      - name: verbose
        in: query
        schema:
          type: boolean
    get:
      summary: Get a pet
      tags: [pets]
      parameters:
        - name: verbose
          in: query
          description: Include history
          schema:
            type: boolean
      responses:
        '200':
          description: OK
    delete:
      operationId: deletePet
      tags: [admin]
      responses:
        '204':
          description: Deleted
  /store/inventory:
    get:
      operationId: getInventory
      tags: [store]
      responses:
        '200':
          description: OK
components:
  schemas:
    NewPet:
      type: object
      required: [name]
      properties:
        name:
          type: string
        tag:
          type: string
`

func loadPetstore(t *testing.T) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData([]byte(petstoreSpec))
	require.NoError(t, err)
	return doc
}

func findOp(t *testing.T, ops []OpenAPIOperation, name string) OpenAPIOperation {
	t.Helper()
	for _, op := range ops {
		if op.OperationID == name {
			return op
		}
	}
	t.Fatalf("operation %q not found", name)
	return OpenAPIOperation{}
}
