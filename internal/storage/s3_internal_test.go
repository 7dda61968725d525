package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyAllowsAnonymousRead(t *testing.T) {
	public := `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::outputs/*"]}]}`
	wildcard := `{"Statement":[{"Effect":"Allow","Principal":"*","Action":"s3:*"}]}`
	denied := `{"Statement":[{"Effect":"Deny","Principal":"*","Action":"s3:GetObject"}]}`
	scoped := `{"Statement":[{"Effect":"Allow","Principal":{"AWS":["arn:aws:iam::1:root"]},"Action":"s3:GetObject"}]}`

	assert.True(t, policyAllowsAnonymousRead(public))
	assert.True(t, policyAllowsAnonymousRead(wildcard))
	assert.False(t, policyAllowsAnonymousRead(denied))
	assert.False(t, policyAllowsAnonymousRead(scoped))
	assert.False(t, policyAllowsAnonymousRead(""))
	assert.False(t, policyAllowsAnonymousRead("not json"))
}

func TestParseEndpoint(t *testing.T) {
	host, ssl := parseEndpoint("http://localhost:9000", true)
	assert.Equal(t, "localhost:9000", host)
	assert.False(t, ssl)

	host, ssl = parseEndpoint("s3.amazonaws.com", true)
	assert.Equal(t, "s3.amazonaws.com", host)
	assert.True(t, ssl)
}
