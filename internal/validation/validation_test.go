package validation

import "testing"

func TestContainsLink(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"http url", "check this out https://example.com/page", true},
		{"https bare", "https://evil.io", true},
		{"www prefix", "visit www.scam-site.net now", true},
		{"bare domain", "go to freetokens.xyz for airdrop", true},
		{"bare domain with path", "claim at drop.finance/claim", true},
		{"plain sentence", "hello everyone, how are you today", false},
		{"decimal number", "the price moved 3.5 percent", false},
		{"ellipsis", "well... maybe later", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsLink(tt.text); got != tt.want {
				t.Errorf("ContainsLink(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestContainsWalletAddress(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"ethereum", "send to 0x742d35Cc6634C0532925a3b844Bc454e4438f44e", true},
		{"ethereum uppercase x", "0X742D35CC6634C0532925A3B844BC454E4438F44E", true},
		{"bitcoin legacy", "my addr 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa thanks", true},
		{"bitcoin bech32", "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq", true},
		{"solana", "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", true},
		{"long hex", "key is deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef", true},
		{"plain sentence", "gm frens, nice day for a chat", false},
		{"short hex", "color code a1b2c3", false},
		{"normal words", "I absolutely love programming in general", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsWalletAddress(tt.text); got != tt.want {
				t.Errorf("ContainsWalletAddress(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"link", "see https://example.com", "links"},
		{"address", "0x742d35Cc6634C0532925a3b844Bc454e4438f44e", "wallet_address"},
		{"clean", "good morning all", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reason(tt.text); got != tt.want {
				t.Errorf("Reason(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
