package session

import "testing"

// FuzzRecordDecode exercises the binary record decoder with arbitrary inputs.
// Goal: no panics, graceful error handling, and re-encodable output.
func FuzzRecordDecode(f *testing.F) {
	rec := &Record{
		Identity: Identity{
			UserID:     "42",
			Username:   "alice",
			Email:      "alice@example.com",
			Attributes: map[string]string{"faction_id": "1"},
		},
		Credentials: CredentialPair{AccessToken: "access", RefreshToken: "refresh"},
		UpdatedAt:   1700000000,
	}
	encoded, err := Encode(rec)
	if err == nil {
		f.Add(encoded)
	}

	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{1})
	f.Add([]byte{255, 255, 255})

	if len(encoded) > 10 {
		f.Add(encoded[:10])
	}
	if len(encoded) > 30 {
		f.Add(encoded[:30])
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		r, err := Decode(data)
		if err != nil {
			return
		}
		if !r.Credentials.Complete() {
			t.Fatalf("decoder accepted incomplete pair")
		}
		if _, err := Encode(r); err != nil {
			t.Fatalf("re-encode of decoded record failed: %v", err)
		}
	})
}
