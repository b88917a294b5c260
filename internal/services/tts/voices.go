package tts

import "strings"

// Quality tiers, cheapest last. Premium requests prefer wavenet but fall back
// to standard rather than fail.
const (
	TierWavenet  = "wavenet"
	TierStandard = "standard"
)

const (
	defaultCharacter = "default"
	defaultLanguage  = "en-us"
)

// voiceMap maps "{character}_{language}_{tier}" keys to provider voice names.
// Characters line up with the tutor personas; languages are lowercased BCP-47.
var voiceMap = map[string]string{
	"susan_us_en-us_wavenet":  "en-US-Wavenet-F",
	"susan_us_en-us_standard": "en-US-Standard-F",

	"uncle_trevor_en-us_wavenet":  "en-US-Wavenet-D",
	"uncle_trevor_en-us_standard": "en-US-Standard-D",

	"default_en-us_wavenet":  "en-US-Wavenet-C",
	"default_en-us_standard": "en-US-Standard-C",
	"default_en-gb_wavenet":  "en-GB-Wavenet-B",
	"default_en-gb_standard": "en-GB-Standard-B",
	"default_fr-fr_wavenet":  "fr-FR-Wavenet-A",
	"default_fr-fr_standard": "fr-FR-Standard-A",
	"default_es-es_wavenet":  "es-ES-Wavenet-B",
	"default_es-es_standard": "es-ES-Standard-B",
	"default_de-de_standard": "de-DE-Standard-A",
	"default_sw-ke_standard": "sw-KE-Standard-A",
}

// VoiceSelection reports which provider voice actually spoke, since the
// request's character and tier are preferences, not guarantees.
type VoiceSelection struct {
	VoiceName       string `json:"voice_name"`
	LanguageCode    string `json:"language_code"`
	QualityTierUsed string `json:"quality_tier_used"`
}

// ResolveVoice picks a provider voice. Resolution order:
//  1. requested character, requested language, preferred tier
//  2. requested character, requested language, the other tier
//  3. default character, requested language, standard tier
//  4. default character, default language, standard tier
func ResolveVoice(character, languageCode string, preferPremium bool) VoiceSelection {
	character = strings.ToLower(strings.TrimSpace(character))
	if character == "" {
		character = defaultCharacter
	}
	language := strings.ToLower(strings.TrimSpace(languageCode))
	if language == "" {
		language = defaultLanguage
	}

	tier := TierStandard
	if preferPremium {
		tier = TierWavenet
	}
	otherTier := TierWavenet
	if tier == TierWavenet {
		otherTier = TierStandard
	}

	if name, ok := voiceMap[character+"_"+language+"_"+tier]; ok {
		return VoiceSelection{VoiceName: name, LanguageCode: canonicalLanguage(language), QualityTierUsed: tier}
	}
	if name, ok := voiceMap[character+"_"+language+"_"+otherTier]; ok {
		return VoiceSelection{VoiceName: name, LanguageCode: canonicalLanguage(language), QualityTierUsed: otherTier}
	}
	if name, ok := voiceMap[defaultCharacter+"_"+language+"_"+TierStandard]; ok {
		return VoiceSelection{VoiceName: name, LanguageCode: canonicalLanguage(language), QualityTierUsed: TierStandard}
	}
	return VoiceSelection{
		VoiceName:       voiceMap[defaultCharacter+"_"+defaultLanguage+"_"+TierStandard],
		LanguageCode:    canonicalLanguage(defaultLanguage),
		QualityTierUsed: TierStandard,
	}
}

// canonicalLanguage restores provider casing, "en-us" to "en-US".
func canonicalLanguage(language string) string {
	parts := strings.SplitN(language, "-", 2)
	if len(parts) != 2 {
		return language
	}
	return parts[0] + "-" + strings.ToUpper(parts[1])
}
