package solana

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Well-known program ids. Names are fixed by upstream.
const (
	SystemProgramID     = "11111111111111111111111111111111"
	TokenProgramID      = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	ATAProgramID        = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"
	MemoProgramID       = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
	JupiterAggregatorID = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	RaydiumAMMID        = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	OrcaWhirlpoolID     = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
)

// knownPrograms maps program ids to friendly labels used in findings.
var knownPrograms = map[string]string{
	SystemProgramID:     "system",
	TokenProgramID:      "spl-token",
	ATAProgramID:        "spl-associated-token-account",
	MemoProgramID:       "memo",
	JupiterAggregatorID: "jupiter",
	RaydiumAMMID:        "raydium",
	OrcaWhirlpoolID:     "orca-whirlpool",
}

// Instruction is one decoded instruction. Recognized program/instruction
// combinations carry a Type and parsed Info; everything else is preserved
// as {ProgramID, RawData}.
type Instruction struct {
	ProgramID string                 `json:"program_id"`
	Program   string                 `json:"program,omitempty"`
	Type      string                 `json:"type,omitempty"`
	Info      map[string]interface{} `json:"info,omitempty"`
	Accounts  []string               `json:"accounts,omitempty"`
	RawData   string                 `json:"raw_data,omitempty"`
}

// Transaction is the structured view of a confirmed transaction.
type Transaction struct {
	Signature         string        `json:"signature"`
	Slot              uint64        `json:"slot"`
	BlockTime         int64         `json:"block_time,omitempty"`
	Fee               uint64        `json:"fee"`
	ComputeUnits      uint64        `json:"compute_units"`
	AccountKeys       []string      `json:"account_keys"`
	Instructions      []Instruction `json:"instructions"`
	InnerInstructions []Instruction `json:"inner_instructions,omitempty"`
	PreBalances       []uint64      `json:"pre_balances"`
	PostBalances      []uint64      `json:"post_balances"`
	LogMessages       []string      `json:"log_messages,omitempty"`
	Failed            bool          `json:"failed,omitempty"`
}

// recognizedTokenOps are the spl-token instruction types the parser keeps
// structured; anything else from the token program falls through as raw.
var recognizedTokenOps = map[string]bool{
	"transfer":        true,
	"transferChecked": true,
	"mintTo":          true,
	"burn":            true,
	"approve":         true,
	"revoke":          true,
	"setAuthority":    true,
	"closeAccount":    true,
}

type rawParsedTx struct {
	Slot      uint64 `json:"slot"`
	BlockTime int64  `json:"blockTime"`
	Meta      struct {
		Fee                  uint64          `json:"fee"`
		ComputeUnitsConsumed uint64          `json:"computeUnitsConsumed"`
		PreBalances          []uint64        `json:"preBalances"`
		PostBalances         []uint64        `json:"postBalances"`
		LogMessages          []string        `json:"logMessages"`
		Err                  interface{}     `json:"err"`
		InnerInstructions    []rawInnerGroup `json:"innerInstructions"`
	} `json:"meta"`
	Transaction struct {
		Message struct {
			AccountKeys  []json.RawMessage `json:"accountKeys"`
			Instructions []rawInstruction  `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
}

type rawInnerGroup struct {
	Index        int              `json:"index"`
	Instructions []rawInstruction `json:"instructions"`
}

type rawInstruction struct {
	ProgramID string          `json:"programId"`
	Program   string          `json:"program"`
	Parsed    json.RawMessage `json:"parsed"`
	Accounts  []string        `json:"accounts"`
	Data      string          `json:"data"`
}

// parseTransaction decodes a jsonParsed getTransaction result. Best-effort:
// malformed sections degrade to raw instructions, never to a panic.
func parseTransaction(signature string, raw json.RawMessage) (*Transaction, error) {
	var decoded rawParsedTx
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode getTransaction: %w", err)
	}

	tx := &Transaction{
		Signature:    signature,
		Slot:         decoded.Slot,
		BlockTime:    decoded.BlockTime,
		Fee:          decoded.Meta.Fee,
		ComputeUnits: decoded.Meta.ComputeUnitsConsumed,
		PreBalances:  decoded.Meta.PreBalances,
		PostBalances: decoded.Meta.PostBalances,
		LogMessages:  decoded.Meta.LogMessages,
		Failed:       decoded.Meta.Err != nil,
	}

	for _, key := range decoded.Transaction.Message.AccountKeys {
		tx.AccountKeys = append(tx.AccountKeys, decodeAccountKey(key))
	}
	for _, ins := range decoded.Transaction.Message.Instructions {
		tx.Instructions = append(tx.Instructions, decodeInstruction(ins))
	}
	for _, group := range decoded.Meta.InnerInstructions {
		for _, ins := range group.Instructions {
			tx.InnerInstructions = append(tx.InnerInstructions, decodeInstruction(ins))
		}
	}
	return tx, nil
}

// decodeAccountKey accepts both the jsonParsed object form {pubkey:...} and
// the plain string form older nodes return.
func decodeAccountKey(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Pubkey string `json:"pubkey"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Pubkey
	}
	return ""
}

func decodeInstruction(ins rawInstruction) Instruction {
	out := Instruction{
		ProgramID: ins.ProgramID,
		Accounts:  ins.Accounts,
	}
	if label, ok := knownPrograms[ins.ProgramID]; ok {
		out.Program = label
	} else if ins.Program != "" {
		out.Program = ins.Program
	}

	if len(ins.Parsed) > 0 {
		var parsed struct {
			Type string                 `json:"type"`
			Info map[string]interface{} `json:"info"`
		}
		if err := json.Unmarshal(ins.Parsed, &parsed); err == nil && parsed.Type != "" {
			if recognizedInstruction(ins.ProgramID, parsed.Type) {
				out.Type = parsed.Type
				out.Info = parsed.Info
				return out
			}
		}
		// Some nodes emit parsed as a bare string (e.g. memo text).
		var memo string
		if err := json.Unmarshal(ins.Parsed, &memo); err == nil && ins.ProgramID == MemoProgramID {
			out.Type = "memo"
			out.Info = map[string]interface{}{"memo": memo}
			return out
		}
	}

	switch ins.ProgramID {
	case JupiterAggregatorID, RaydiumAMMID, OrcaWhirlpoolID:
		out.Type = "swap"
	}

	out.RawData = ins.Data
	return out
}

func recognizedInstruction(programID, parsedType string) bool {
	switch programID {
	case SystemProgramID:
		return parsedType == "transfer" || parsedType == "createAccount" || parsedType == "assign"
	case TokenProgramID:
		return recognizedTokenOps[parsedType]
	case ATAProgramID:
		return parsedType == "create" || parsedType == "createIdempotent"
	default:
		return false
	}
}

// parseTokenAccounts decodes a getTokenAccountsByOwner jsonParsed result.
// Malformed entries are dropped, not fatal.
func parseTokenAccounts(raw json.RawMessage) []TokenAccount {
	var resp struct {
		Value []struct {
			Pubkey  string `json:"pubkey"`
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							Mint        string `json:"mint"`
							TokenAmount struct {
								UIAmountString string `json:"uiAmountString"`
							} `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil
	}

	accounts := make([]TokenAccount, 0, len(resp.Value))
	for _, v := range resp.Value {
		amount, _ := strconv.ParseFloat(v.Account.Data.Parsed.Info.TokenAmount.UIAmountString, 64)
		accounts = append(accounts, TokenAccount{
			Address: v.Pubkey,
			Mint:    v.Account.Data.Parsed.Info.Mint,
			Amount:  amount,
		})
	}
	return accounts
}
