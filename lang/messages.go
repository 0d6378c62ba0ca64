package lang

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/open-rails/probekit/core"
)

// Key names a user-facing message.
type Key string

const (
	KeyChooseSubject    Key = "choose_subject"
	KeyCooldownActive   Key = "cooldown_active"    // args: hours, minutes
	KeyQuotaExhausted   Key = "quota_exhausted"    // args: subject title
	KeyNoAccess         Key = "no_access"          // args: price hint
	KeyCatalogExhausted Key = "catalog_exhausted"  // args: subject title
	KeyConflict         Key = "conflict"
	KeyGenericError     Key = "generic_error"
	KeyWelcome          Key = "welcome"
	KeyWelcomeBack      Key = "welcome_back"
	KeyDeliveredFree    Key = "delivered_free"     // args: label
	KeyDeliveredPaid    Key = "delivered_paid"     // args: label
	KeyGrantReceived    Key = "grant_received"     // args: amount, subject title, remaining
	KeySubscriberCount  Key = "subscriber_count"   // args: count
)

var messages = map[string]map[Key]string{
	Kazakh: {
		KeyChooseSubject:    "Сәлем! Пәнді таңдаңыз:",
		KeyCooldownActive:   "Сіз бұл бөлімнің нұсқасын %d сағат %d минуттан кейін ғана ала аласыз.",
		KeyQuotaExhausted:   "Сіздің %s пәні бойынша пробниктердің лимиті таусылды.",
		KeyNoAccess:         "Бұл нұсқаға қолжетімділік жоқ. Бағасы %s тг. Сатып алу үшін әкімшіге жазыңыз.",
		KeyCatalogExhausted: "Кешіріңіз, %s бойынша жаңа пробниктер әлі жоқ.",
		KeyConflict:         "Сұраныс өңделмеді, қайталап көріңіз.",
		KeyGenericError:     "Қате пайда болды. Әкімшіге жазыңыз.",
		KeyWelcome:          "Сәлем! Пәнді таңдаңыз:",
		KeyWelcomeBack:      "Қайта қош келдіңіз! Пәнді таңдаңыз:",
		KeyDeliveredFree:    "ҰБТ-да келу ықтималдығы аздау нұсқа (Тегін) - %s",
		KeyDeliveredPaid:    "Ерекше нұсқа: %s",
		KeyGrantReceived:    "Сізге %d пробник ашылды (%s). Қалғаны: %d.",
		KeySubscriberCount:  "Қолданушылар саны: %d",
	},
	Russian: {
		KeyChooseSubject:    "Привет! Выберите предмет:",
		KeyCooldownActive:   "Следующий вариант будет доступен через %d ч %d мин.",
		KeyQuotaExhausted:   "Лимит пробников по предмету %s исчерпан.",
		KeyNoAccess:         "Нет доступа к этому варианту. Цена %s тг. Для покупки напишите администратору.",
		KeyCatalogExhausted: "Новых пробников по предмету %s пока нет.",
		KeyConflict:         "Запрос не обработан, попробуйте ещё раз.",
		KeyGenericError:     "Произошла ошибка. Напишите администратору.",
		KeyWelcome:          "Привет! Выберите предмет:",
		KeyWelcomeBack:      "С возвращением! Выберите предмет:",
		KeyDeliveredFree:    "Вариант (бесплатный) - %s",
		KeyDeliveredPaid:    "Особый вариант: %s",
		KeyGrantReceived:    "Вам открыто %d пробников (%s). Осталось: %d.",
		KeySubscriberCount:  "Количество подписчиков: %d",
	},
}

// T renders a message in the ctx language, falling back to the default
// language and then to the key itself for unknown entries.
func T(ctx context.Context, key Key, args ...any) string {
	l := Resolve(ctx)
	cat, ok := messages[l]
	if !ok {
		cat = messages[Default]
	}
	msg, ok := cat[key]
	if !ok {
		msg, ok = messages[Default][key]
		if !ok {
			return string(key)
		}
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// DenialMessage translates an engine denial into user-facing text.
// subjectTitle and priceHint come from the subject configuration; priceHint
// selects the "no access yet" wording when the record never existed.
func DenialMessage(ctx context.Context, err error, subjectTitle, priceHint string) string {
	var cd *core.CooldownError
	switch {
	case errors.As(err, &cd):
		h := int(cd.Remaining / time.Hour)
		m := int(cd.Remaining%time.Hour) / int(time.Minute)
		return T(ctx, KeyCooldownActive, h, m)
	case errors.Is(err, core.ErrQuotaExhausted):
		if priceHint != "" {
			return T(ctx, KeyNoAccess, priceHint)
		}
		return T(ctx, KeyQuotaExhausted, subjectTitle)
	case errors.Is(err, core.ErrCatalogExhausted):
		return T(ctx, KeyCatalogExhausted, subjectTitle)
	case errors.Is(err, core.ErrConflict):
		return T(ctx, KeyConflict)
	default:
		return T(ctx, KeyGenericError)
	}
}
