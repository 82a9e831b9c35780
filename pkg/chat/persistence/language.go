package persistence

import (
	"context"

	"tarik-chat-be/internal/constant"
	"tarik-chat-be/internal/entity"
	"tarik-chat-be/internal/repository/contract"
	"tarik-chat-be/pkg/chat/chaterr"
)

// LanguagePreference is the owner's reply language, kept next to the local
// session snapshot.
type LanguagePreference struct {
	kv  contract.KeyValueRepository
	key string
}

func NewLanguagePreference(kv contract.KeyValueRepository, ownerID string) *LanguagePreference {
	return &LanguagePreference{kv: kv, key: ownerKey(constant.LocalLanguageKey, ownerID)}
}

// Load returns the stored language, English when unset or unreadable.
func (p *LanguagePreference) Load(ctx context.Context) entity.Language {
	raw, found, err := p.kv.Get(ctx, p.key)
	if err != nil || !found {
		return entity.LanguageEnglish
	}
	if lang, ok := entity.ParseLanguage(raw); ok {
		return lang
	}
	return entity.LanguageEnglish
}

func (p *LanguagePreference) Save(ctx context.Context, lang entity.Language) error {
	if _, ok := entity.ParseLanguage(string(lang)); !ok {
		return chaterr.Validation("unknown language " + string(lang))
	}
	return p.kv.Set(ctx, p.key, string(lang))
}
