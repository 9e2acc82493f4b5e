// Package pkpass builds signed Apple Wallet pass archives.
//
// An archive holds a pass.json descriptor, the images it references, a
// manifest.json mapping every file to its SHA-1 digest, and a detached
// PKCS#7 signature over the manifest.
package pkpass

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	ContentType   = "application/vnd.apple.pkpass"
	FileExtension = ".pkpass"

	descriptorFile = "pass.json"
	manifestFile   = "manifest.json"
	signatureFile  = "signature"
	iconFile       = "icon.png"

	BarcodeFormatQR         = "PKBarcodeFormatQR"
	BarcodeEncodingISO88591 = "iso-8859-1"
)

var (
	ErrMissingCredentials  = errors.New("pkpass: missing signing credentials")
	ErrAssetNotFound       = errors.New("pkpass: asset not found")
	ErrBuild               = errors.New("pkpass: build failed")
	ErrUnsupportedPlatform = errors.New("pkpass: unsupported platform")
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// ParsePlatform maps a query value to a platform. Empty means iOS.
// Android is recognised but has no wallet format yet.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case "", PlatformIOS:
		return PlatformIOS, nil
	case PlatformAndroid:
		return PlatformAndroid, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, PlatformAndroid)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, s)
	}
}

type Field struct {
	Key           string `json:"key"`
	Label         string `json:"label,omitempty"`
	Value         any    `json:"value"`
	ChangeMessage string `json:"changeMessage,omitempty"`
}

type Barcode struct {
	Message         string `json:"message"`
	Format          string `json:"format"`
	MessageEncoding string `json:"messageEncoding"`
	AltText         string `json:"altText,omitempty"`
}

type StoreCard struct {
	HeaderFields    []Field `json:"headerFields,omitempty"`
	PrimaryFields   []Field `json:"primaryFields,omitempty"`
	SecondaryFields []Field `json:"secondaryFields,omitempty"`
	AuxiliaryFields []Field `json:"auxiliaryFields,omitempty"`
	BackFields      []Field `json:"backFields,omitempty"`
}

// Descriptor is the pass.json document.
type Descriptor struct {
	FormatVersion      int       `json:"formatVersion"`
	PassTypeIdentifier string    `json:"passTypeIdentifier"`
	SerialNumber       string    `json:"serialNumber"`
	TeamIdentifier     string    `json:"teamIdentifier"`
	OrganizationName   string    `json:"organizationName"`
	Description        string    `json:"description"`
	LogoText           string    `json:"logoText,omitempty"`
	ForegroundColor    string    `json:"foregroundColor,omitempty"`
	BackgroundColor    string    `json:"backgroundColor,omitempty"`
	LabelColor         string    `json:"labelColor,omitempty"`
	Barcode            *Barcode  `json:"barcode,omitempty"`
	Barcodes           []Barcode `json:"barcodes,omitempty"`
	StoreCard          StoreCard `json:"storeCard"`
	ExpirationDate     string    `json:"expirationDate,omitempty"`
	Voided             bool      `json:"voided,omitempty"`
}

// QRBarcode returns the barcode used for staff scanning.
func QRBarcode(message string) Barcode {
	return Barcode{
		Message:         message,
		Format:          BarcodeFormatQR,
		MessageEncoding: BarcodeEncodingISO88591,
		AltText:         message,
	}
}

// CSSColor converts "#RRGGBB" (or "RRGGBB") into the "rgb(r, g, b)" form
// Wallet expects. Values already in rgb() form pass through; empty stays
// empty.
func CSSColor(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "rgb(") {
		return s, nil
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return "", fmt.Errorf("invalid color %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return "", fmt.Errorf("invalid color %q", s)
	}

	return fmt.Sprintf("rgb(%d, %d, %d)", v>>16&0xff, v>>8&0xff, v&0xff), nil
}
