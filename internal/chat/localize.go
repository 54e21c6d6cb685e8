package chat

import (
	"errors"

	"github.com/pandaai/panda/internal/schema"
)

// ErrTurnActive is returned when a conversation already has a reply in flight.
var ErrTurnActive = errors.New("a reply is already in progress for this conversation")

type localized struct{ en, hi string }

var errorMessages = map[schema.ErrorKind]localized{
	schema.ErrConfiguration: {
		en: "⚠️ Panda AI is not configured yet. Add a valid API_KEY (without quotes) and restart.",
		hi: "⚠️ पांडा एआई अभी कॉन्फ़िगर नहीं है। एक मान्य API_KEY (बिना उद्धरण चिह्नों के) जोड़ें और फिर से शुरू करें।",
	},
	schema.ErrRateLimited: {
		en: "⏳ Too many requests right now. Please wait a moment and try again.",
		hi: "⏳ अभी बहुत अधिक अनुरोध हैं। कृपया थोड़ी देर बाद फिर से प्रयास करें।",
	},
	schema.ErrUnauthorized: {
		en: "🔑 The API key was rejected. Check that API_KEY is correct and still active.",
		hi: "🔑 API कुंजी अस्वीकार कर दी गई। जाँचें कि API_KEY सही और सक्रिय है।",
	},
	schema.ErrForbidden: {
		en: "🚫 Access denied for this model. Check your account credits or model permissions.",
		hi: "🚫 इस मॉडल तक पहुँच अस्वीकृत है। अपने खाते के क्रेडिट या मॉडल अनुमतियाँ जाँचें।",
	},
	schema.ErrBadRequest: {
		en: "❌ The request was not accepted by the model. Try rephrasing or removing attachments.",
		hi: "❌ मॉडल ने अनुरोध स्वीकार नहीं किया। दोबारा लिखें या संलग्नक हटाकर प्रयास करें।",
	},
	schema.ErrNotFound: {
		en: "🔍 The selected model is not available. Choose a different model in settings.",
		hi: "🔍 चुना गया मॉडल उपलब्ध नहीं है। सेटिंग्स में कोई दूसरा मॉडल चुनें।",
	},
	schema.ErrUnprocessable: {
		en: "❌ The model could not process this request. Try a different model or input.",
		hi: "❌ मॉडल इस अनुरोध को संसाधित नहीं कर सका। कोई दूसरा मॉडल या इनपुट आज़माएँ।",
	},
	schema.ErrServer: {
		en: "🛠️ The AI service is having trouble. Please try again shortly.",
		hi: "🛠️ एआई सेवा में समस्या है। कृपया थोड़ी देर बाद प्रयास करें।",
	},
	schema.ErrSafetyBlocked: {
		en: "🛡️ This response was blocked by the safety filter. Please rephrase your message.",
		hi: "🛡️ यह उत्तर सुरक्षा फ़िल्टर द्वारा रोका गया। कृपया अपना संदेश दोबारा लिखें।",
	},
	schema.ErrEmptyResponse: {
		en: "🤔 The model returned an empty reply. Please try again.",
		hi: "🤔 मॉडल ने खाली उत्तर दिया। कृपया फिर से प्रयास करें।",
	},
	schema.ErrNetwork: {
		en: "📡 Could not reach the AI service. Check your internet connection.",
		hi: "📡 एआई सेवा से संपर्क नहीं हो सका। अपना इंटरनेट कनेक्शन जाँचें।",
	},
	schema.ErrPayloadTooLarge: {
		en: "📦 That file is too large. Images must be 4 MB or smaller.",
		hi: "📦 फ़ाइल बहुत बड़ी है। छवियाँ 4 MB या उससे छोटी होनी चाहिए।",
	},
	schema.ErrCanceled: {
		en: "⏹️ The reply was cancelled.",
		hi: "⏹️ उत्तर रद्द कर दिया गया।",
	},
}

var unknownMessage = localized{
	en: "😕 Something went wrong. Please try again.",
	hi: "😕 कुछ गलत हो गया। कृपया फिर से प्रयास करें।",
}

var busyMessage = localized{
	en: "Panda is still answering your previous message. Please wait.",
	hi: "पांडा अभी आपके पिछले संदेश का उत्तर दे रहा है। कृपया प्रतीक्षा करें।",
}

// Localize maps err to the user-facing message for lang.
func Localize(err error, lang schema.Language) string {
	msg, ok := errorMessages[schema.KindOf(err)]
	if errors.Is(err, ErrTurnActive) {
		msg, ok = busyMessage, true
	}
	if !ok {
		msg = unknownMessage
	}
	if lang == schema.Hindi {
		return msg.hi
	}
	return msg.en
}
