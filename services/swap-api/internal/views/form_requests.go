package views

import "encoding/json"

type CreateFormRequest struct {
	Network string `json:"network"`
}

// SelectionRequest changes the asset selection; an omitted field is left as is and "" clears it.
type SelectionRequest struct {
	Token    *string `json:"token"`
	Currency *string `json:"currency"`
}

type AmountRequest struct {
	Field string `json:"field" binding:"required,oneof=sent received"`
	Value string `json:"value" binding:"max=64"`
}

type MaxRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
}

type RecipientRequest struct {
	Institution       string `json:"institution" binding:"max=64"`
	AccountIdentifier string `json:"accountIdentifier" binding:"max=64"`
	AccountName       string `json:"accountName" binding:"max=128"`
	Memo              string `json:"memo" binding:"max=256"`
}

type SubmitRequest struct {
	PublicKey string `json:"publicKey"`
}

type EncryptRequest struct {
	Payload   json.RawMessage `json:"payload" binding:"required"`
	PublicKey string          `json:"publicKey" binding:"required"`
}
