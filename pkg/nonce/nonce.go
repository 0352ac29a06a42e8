// Package nonce issues one-time tokens used as the OAuth2 state
// parameter, so an authorization callback can only be consumed for a
// login flow this application actually started.
package nonce

import (
	"fmt"

	"github.com/hashicorp/go-secure-stdlib/nonceutil"
)

type Service interface {
	Get() (string, error)
	Redeem(nonceStr string) error
}

// HashicorpService issues HMAC-backed nonces that need no server-side
// storage.
type HashicorpService struct {
	nonceService nonceutil.NonceService
}

func NewHashicorpService() (*HashicorpService, error) {
	nonceService := nonceutil.NewNonceService()
	err := nonceService.Initialize()
	if err != nil {
		return nil, fmt.Errorf("could not initialize nonce service: %w", err)
	}
	return &HashicorpService{nonceService}, nil
}

func (s *HashicorpService) Get() (string, error) {
	nonceStr, _, err := s.nonceService.Get()
	if err != nil {
		return "", err
	}
	return nonceStr, nil
}

func (s *HashicorpService) Redeem(nonceStr string) error {
	ok := s.nonceService.Redeem(nonceStr)
	if !ok {
		return fmt.Errorf("nonce %s not found", nonceStr)
	}
	return nil
}
