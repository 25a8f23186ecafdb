// Package config loads and validates the diarycheck configuration.
//
// # Configuration Sources
//
// Values are resolved in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. YAML configuration file (config.yaml, configs/config.yaml or --config)
//  3. Defaults returned by Default (lowest priority)
//
// # Environment Variables
//
// All environment variables use the DIARY_ prefix followed by the section
// and field name:
//
//	DIARY_SERVER_PORT=8080
//	DIARY_COLUMNS_PANEL_NO=PANELNO
//	DIARY_VALIDATION_PRODUCT_LIST=C,P,R
//	DIARY_VALIDATION_MAX_ANSWERS=36
//	DIARY_CHANGELOG_BACKEND=sqlite
//
// # Column Roles
//
// The engine never hardcodes column names. Every role (panel, packed date,
// order, product, start and end clock) is mapped in the columns section and
// checked at startup; derived and annotation column names are computed from
// it through the helper methods on Config.
//
// The product list has no default. Load fails until it is configured.
package config
