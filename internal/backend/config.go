package backend

import (
	"fmt"

	"trackify/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	mirrorType := MirrorType(appConfig.MirrorBackend)
	if !mirrorType.IsValid() {
		return Config{}, fmt.Errorf("invalid mirror backend in config: %s", appConfig.MirrorBackend)
	}
	sourceType := SourceType(appConfig.SourceProvider)
	if !sourceType.IsValid() {
		return Config{}, fmt.Errorf("invalid source provider in config: %s", appConfig.SourceProvider)
	}

	return Config{
		Mirror: mirrorType,
		Source: sourceType,

		FirebaseCredentialsFile: appConfig.FirebaseCredentialsFile,
		FirebaseProjectID:       appConfig.FirebaseProjectID,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		TellerBaseURL: appConfig.TellerBaseURL,
		TellerVersion: appConfig.TellerVersion,

		PlaidClientID:     appConfig.PlaidClientID,
		PlaidSecret:       appConfig.PlaidSecret,
		PlaidEnv:          appConfig.PlaidEnv,
		PlaidLookbackDays: appConfig.PlaidLookbackDays,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Mirror.IsValid() {
		return fmt.Errorf("invalid mirror backend: %s", c.Mirror)
	}
	if !c.Source.IsValid() {
		return fmt.Errorf("invalid source provider: %s", c.Source)
	}

	switch c.Mirror {
	case SheetsMirror:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case FirestoreMirror, MemoryMirror:
		// Firestore falls back to application default credentials.
	}

	if c.Source == PlaidSource && (c.PlaidClientID == "" || c.PlaidSecret == "") {
		return fmt.Errorf("Plaid client id and secret are required for plaid source")
	}
	return nil
}

// GetMirrorTypes returns all valid mirror types
func GetMirrorTypes() []MirrorType {
	return []MirrorType{MemoryMirror, FirestoreMirror, SheetsMirror}
}

// GetMirrorTypeStrings returns all valid mirror type strings
func GetMirrorTypeStrings() []string {
	types := GetMirrorTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
