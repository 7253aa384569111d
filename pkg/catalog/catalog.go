// Package catalog holds the static option lists the form offers: supported tokens per network,
// destination currencies and the payout institutions of each currency.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

var ErrUnknownNetwork = errors.New("unknown network")

type Token struct {
	Symbol   string `yaml:"symbol" json:"symbol"`
	Name     string `yaml:"name" json:"name"`
	Address  string `yaml:"address" json:"address"`
	Decimals int32  `yaml:"decimals" json:"decimals"`
	ImageURL string `yaml:"imageUrl" json:"imageUrl"`
}

type Network struct {
	Name    string  `yaml:"name" json:"name"`
	ChainID int64   `yaml:"chainId" json:"chainId"`
	Tokens  []Token `yaml:"tokens" json:"tokens"`
}

type Institution struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

type Currency struct {
	Code         string        `yaml:"code" json:"code"`
	Name         string        `yaml:"name" json:"name"`
	Locale       string        `yaml:"locale" json:"locale"`
	Institutions []Institution `yaml:"institutions" json:"institutions,omitempty"`
}

type Catalog struct {
	Networks   []Network  `yaml:"networks"`
	Currencies []Currency `yaml:"currencies"`
}

// Load parses the catalog shipped with the binary.
func Load() (*Catalog, error) {
	return Parse(embedded)
}

// LoadFile parses an operator-provided catalog instead of the embedded one.
func LoadFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Networks) == 0 {
		return nil, errors.New("catalog has no networks")
	}
	for _, n := range c.Networks {
		if n.Name == "" {
			return nil, errors.New("catalog network without name")
		}
		for _, t := range n.Tokens {
			if t.Symbol == "" || t.Decimals < 0 {
				return nil, fmt.Errorf("network %s: invalid token %q", n.Name, t.Symbol)
			}
		}
	}
	return &c, nil
}

func (c *Catalog) Network(name string) (Network, bool) {
	for _, n := range c.Networks {
		if strings.EqualFold(n.Name, name) {
			return n, true
		}
	}
	return Network{}, false
}

// Tokens lists the supported tokens of a network.
func (c *Catalog) Tokens(network string) ([]Token, error) {
	n, ok := c.Network(network)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, network)
	}
	return n.Tokens, nil
}

func (c *Catalog) Token(network, symbol string) (Token, bool) {
	n, ok := c.Network(network)
	if !ok {
		return Token{}, false
	}
	for _, t := range n.Tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, true
		}
	}
	return Token{}, false
}

func (c *Catalog) Currency(code string) (Currency, bool) {
	for _, cur := range c.Currencies {
		if strings.EqualFold(cur.Code, code) {
			return cur, true
		}
	}
	return Currency{}, false
}

// Institutions lists the payout institutions of a currency; unknown currencies have none.
func (c *Catalog) Institutions(currency string) []Institution {
	cur, ok := c.Currency(currency)
	if !ok {
		return nil
	}
	return cur.Institutions
}

// InstitutionNameByCode returns the display name of the institution with the given code.
func InstitutionNameByCode(code string, institutions []Institution) (string, bool) {
	for _, inst := range institutions {
		if inst.Code == code {
			return inst.Name, true
		}
	}
	return "", false
}
