package language

import "sort"

// Label holds display names for a language code.
type Label struct {
	English string
	Chinese string
}

var labels = map[string]Label{
	"ar": {English: "Arabic", Chinese: "阿拉伯语"},
	"de": {English: "German", Chinese: "德语"},
	"en": {English: "English", Chinese: "英语"},
	"es": {English: "Spanish", Chinese: "西班牙语"},
	"fr": {English: "French", Chinese: "法语"},
	"hi": {English: "Hindi", Chinese: "印地语"},
	"id": {English: "Indonesian", Chinese: "印度尼西亚语"},
	"it": {English: "Italian", Chinese: "意大利语"},
	"ja": {English: "Japanese", Chinese: "日语"},
	"ko": {English: "Korean", Chinese: "韩语"},
	"nl": {English: "Dutch", Chinese: "荷兰语"},
	"pl": {English: "Polish", Chinese: "波兰语"},
	"pt": {English: "Portuguese", Chinese: "葡萄牙语"},
	"ru": {English: "Russian", Chinese: "俄语"},
	"th": {English: "Thai", Chinese: "泰语"},
	"tr": {English: "Turkish", Chinese: "土耳其语"},
	"uk": {English: "Ukrainian", Chinese: "乌克兰语"},
	"vi": {English: "Vietnamese", Chinese: "越南语"},
	"zh": {English: "Chinese", Chinese: "中文"},
}

// mBART-50 many-to-many language codes keyed by ISO 639-1.
var mbartCodes = map[string]string{
	"af": "af_ZA", "ar": "ar_AR", "bn": "bn_IN", "cs": "cs_CZ", "de": "de_DE",
	"en": "en_XX", "es": "es_XX", "et": "et_EE", "fa": "fa_IR", "fi": "fi_FI",
	"fr": "fr_XX", "gl": "gl_ES", "gu": "gu_IN", "he": "he_IL", "hi": "hi_IN",
	"hr": "hr_HR", "id": "id_ID", "it": "it_IT", "ja": "ja_XX", "ka": "ka_GE",
	"kk": "kk_KZ", "km": "km_KH", "ko": "ko_KR", "lt": "lt_LT", "lv": "lv_LV",
	"mk": "mk_MK", "ml": "ml_IN", "mn": "mn_MN", "mr": "mr_IN", "my": "my_MM",
	"ne": "ne_NP", "nl": "nl_XX", "pl": "pl_PL", "ps": "ps_AF", "pt": "pt_XX",
	"ro": "ro_RO", "ru": "ru_RU", "si": "si_LK", "sl": "sl_SI", "sv": "sv_SE",
	"sw": "sw_KE", "ta": "ta_IN", "te": "te_IN", "th": "th_TH", "tl": "tl_XX",
	"tr": "tr_TR", "uk": "uk_UA", "ur": "ur_PK", "vi": "vi_VN", "xh": "xh_ZA",
	"zh": "zh_CN",
}

// LabelFor returns display names for code. Unknown codes echo the code.
func LabelFor(code string) Label {
	normalized := NormalizeCode(code)
	if label, ok := labels[normalized]; ok {
		return label
	}
	if normalized == "" {
		normalized = code
	}
	return Label{English: normalized, Chinese: normalized}
}

// MBartCode maps an ISO code to its mBART-50 form ("ja" -> "ja_XX").
func MBartCode(code string) (string, bool) {
	mapped, ok := mbartCodes[NormalizeCode(code)]
	return mapped, ok
}

// MBartLanguages lists the ISO codes covered by mBART-50.
func MBartLanguages() []string {
	return sortedKeys(mbartCodes)
}

// LabeledLanguages lists the ISO codes with display labels.
func LabeledLanguages() []string {
	codes := make([]string, 0, len(labels))
	for code := range labels {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
