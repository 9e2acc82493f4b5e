package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/gettruefans/truefans-api/internal/domain"
	"github.com/gettruefans/truefans-api/internal/pkg/pkpass"
)

const (
	defaultForeground = "#FFFFFF"
	defaultBackground = "#000000"
	walletDateLayout  = "Jan 2, 2006"
)

type WalletBuilder interface {
	Build(ctx context.Context, c pkpass.Content) (pkpass.Archive, error)
}

type LogoFetcher interface {
	FetchLogo(ctx context.Context, url string) (map[string][]byte, error)
}

// Artifact is a wallet file ready to be streamed to a diner.
type Artifact struct {
	FileName    string
	ContentType string
	Data        []byte
}

// walletContent maps a pass and its brand styling onto the wallet layout.
// tmpl is nil for passes issued without a template.
func walletContent(pass domain.IssuedPass, brand domain.Brand, tmpl *domain.PassTemplate, now time.Time) pkpass.Content {
	background := firstNonEmpty(brand.Wallet.CardBackground, brand.Wallet.PrimaryColor, defaultBackground)
	foreground := firstNonEmpty(brand.Wallet.CardTextColor, defaultForeground)

	description := brand.Name + " loyalty pass"
	if tmpl != nil && tmpl.Name != "" {
		description = tmpl.Name
	}

	lastVisit := "Never"
	if pass.LastUsedAt != nil {
		lastVisit = pass.LastUsedAt.UTC().Format(walletDateLayout)
	}

	card := pkpass.StoreCard{
		PrimaryFields: []pkpass.Field{
			{Key: "visits", Label: "VISITS", Value: pass.Visits, ChangeMessage: "You now have %@ visits"},
		},
		SecondaryFields: []pkpass.Field{
			{Key: "points", Label: "POINTS", Value: pass.Points, ChangeMessage: "You now have %@ points"},
			{Key: "lastVisit", Label: "LAST VISIT", Value: lastVisit},
		},
		AuxiliaryFields: []pkpass.Field{
			{Key: "expires", Label: "EXPIRES", Value: pass.ExpiresAt.UTC().Format(walletDateLayout)},
		},
		BackFields: []pkpass.Field{
			{Key: "member", Label: "Member", Value: pass.DinerName},
		},
	}

	if tmpl != nil {
		if tmpl.Punches > 0 {
			card.AuxiliaryFields = append(card.AuxiliaryFields, pkpass.Field{
				Key: "punches", Label: "PUNCHES", Value: strconv.Itoa(min(pass.Visits, tmpl.Punches)) + "/" + strconv.Itoa(tmpl.Punches),
			})
		}
		if tmpl.Benefits != "" {
			card.BackFields = append(card.BackFields, pkpass.Field{Key: "benefits", Label: "Benefits", Value: tmpl.Benefits})
		}
	}
	if brand.Wallet.CustomMessage != "" {
		card.BackFields = append(card.BackFields, pkpass.Field{Key: "message", Label: brand.Name, Value: brand.Wallet.CustomMessage})
	}
	if brand.Promotion.IsCurrent(now) {
		card.BackFields = append(card.BackFields, pkpass.Field{
			Key: "promotion", Label: brand.Promotion.Title, Value: promotionText(brand.Promotion),
		})
	}

	return pkpass.Content{
		SerialNumber:     pass.Serial,
		OrganizationName: brand.Name,
		Description:      description,
		LogoText:         brand.Name,
		ForegroundColor:  foreground,
		BackgroundColor:  background,
		LabelColor:       firstNonEmpty(brand.Wallet.SecondaryColor, foreground),
		StoreCard:        card,
		ExpiresAt:        pass.ExpiresAt,
		Voided:           pass.Status == domain.PassRevoked || pass.Status == domain.PassExpired || pass.IsExpired(now),
	}
}

func promotionText(p domain.Promotion) string {
	text := p.Description
	if p.Discount.IsPositive() {
		off := p.Discount.String() + "% off"
		if text == "" {
			text = off
		} else {
			text = text + " (" + off + ")"
		}
	}
	if p.ValidUntil != nil {
		text += ", valid until " + p.ValidUntil.UTC().Format(walletDateLayout)
	}

	return text
}

// buildArtifact renders and signs the wallet file of a pass. A brand logo
// that cannot be fetched falls back to the bundled images.
func (s *PassService) buildArtifact(ctx context.Context, pass domain.IssuedPass, brand domain.Brand, tmpl *domain.PassTemplate) (Artifact, error) {
	content := walletContent(pass, brand, tmpl, s.now())

	if brand.Wallet.LogoURL != "" && s.logos != nil {
		images, err := s.logos.FetchLogo(ctx, brand.Wallet.LogoURL)
		if err != nil {
			zap.L().Warn("brand logo unavailable, using bundled images",
				zap.Uint("brand_id", brand.ID), zap.String("logo_url", brand.Wallet.LogoURL), zap.Error(err))
		} else {
			content.Images = images
		}
	}

	archive, err := s.builder.Build(ctx, content)
	if err != nil {
		return Artifact{}, fmt.Errorf("s.builder.Build -> %w", err)
	}

	return Artifact{
		FileName:    pass.Serial + pkpass.FileExtension,
		ContentType: pkpass.ContentType,
		Data:        archive.Data,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
