package rules

// Builtin contains the hardcoded sensitive-path rules. These are the
// boundary that is always enforced and cannot be overridden by
// configuration; user rules files can only add patterns.
var Builtin = []Rule{
	// Environment files: .env, .env.<suffix>, .env-<suffix>
	{Kind: KindSuffix, Pattern: ".env"},
	{Kind: KindRegex, Pattern: `\.env\.[^/]+$`},
	{Kind: KindRegex, Pattern: `\.env-[^/]+$`},

	// Known secret directories
	{Kind: KindContains, Pattern: "config/secrets"},
	{Kind: KindRegex, Pattern: `(^|/)\.ssh(/|$)`},
	{Kind: KindRegex, Pattern: `(^|/)\.gnupg(/|$)`},

	// Key and certificate material
	{Kind: KindSuffix, Pattern: ".pem"},
	{Kind: KindSuffix, Pattern: ".key"},
	{Kind: KindRegex, Pattern: `(^|/)id_(rsa|dsa|ecdsa|ed25519)$`},

	// Cloud provider credentials
	{Kind: KindRegex, Pattern: `(^|/)\.aws/credentials$`},
	{Kind: KindRegex, Pattern: `(^|/)credentials\.json$`},

	// Package-manager and stored login credentials
	{Kind: KindRegex, Pattern: `(^|/)\.npmrc$`},
	{Kind: KindRegex, Pattern: `(^|/)\.pypirc$`},
	{Kind: KindRegex, Pattern: `(^|/)\.netrc$`},
	{Kind: KindRegex, Pattern: `(^|/)\.git-credentials$`},

	// Database password files
	{Kind: KindRegex, Pattern: `(^|/)\.pgpass$`},
	{Kind: KindRegex, Pattern: `(^|/)\.my\.cnf$`},
}

// reasonEntry maps a path substring to a display category.
type reasonEntry struct {
	substr string
	reason string
}

// reasonTable is checked in order; the first substring hit wins. The
// category is display-only and never affects the block decision.
var reasonTable = []reasonEntry{
	{".env", "Environment file with potential secrets"},
	{"config/secrets", "Secrets directory"},
	{".ssh", "SSH key material"},
	{".gnupg", "GPG key material"},
	{"id_rsa", "SSH private key"},
	{"id_dsa", "SSH private key"},
	{"id_ecdsa", "SSH private key"},
	{"id_ed25519", "SSH private key"},
	{".aws", "Cloud provider credentials"},
	{"credentials", "Credential file"},
	{".pem", "Private key or certificate"},
	{".key", "Private key file"},
	{".npmrc", "Package manager credentials"},
	{".pypirc", "Package manager credentials"},
	{".netrc", "Stored login credentials"},
	{".git-credentials", "Stored login credentials"},
	{".pgpass", "Database credentials"},
	{".my.cnf", "Database credentials"},
}

// defaultReason labels matches that fit no category substring.
const defaultReason = "Sensitive file"
