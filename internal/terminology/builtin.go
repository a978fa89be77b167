package terminology

// Builtin returns the bundled architecture and art vocabulary. Deployment
// tables registered afterwards override these rows.
func Builtin() []Entry {
	out := make([]Entry, len(builtinEntries))
	copy(out, builtinEntries)
	return out
}

var builtinEntries = []Entry{
	// Chinese: architecture.
	{SourceLang: "zh", SourceTerm: "哥特式建筑", CanonicalEnglish: "Gothic architecture"},
	{SourceLang: "zh", SourceTerm: "哥特式", CanonicalEnglish: "Gothic"},
	{SourceLang: "zh", SourceTerm: "巴洛克风格", CanonicalEnglish: "Baroque style"},
	{SourceLang: "zh", SourceTerm: "飞扶壁", CanonicalEnglish: "flying buttress"},
	{SourceLang: "zh", SourceTerm: "穹顶", CanonicalEnglish: "dome"},
	{SourceLang: "zh", SourceTerm: "斗拱", CanonicalEnglish: "dougong bracket set"},
	{SourceLang: "zh", SourceTerm: "飞檐", CanonicalEnglish: "upturned eaves"},
	{SourceLang: "zh", SourceTerm: "粗野主义", CanonicalEnglish: "brutalism"},
	{SourceLang: "zh", SourceTerm: "参数化设计", CanonicalEnglish: "parametric design"},
	{SourceLang: "zh", SourceTerm: "鸟瞰图", CanonicalEnglish: "aerial view"},
	{SourceLang: "zh", SourceTerm: "剖面图", CanonicalEnglish: "section drawing"},
	// Chinese: rendering and quality tags.
	{SourceLang: "zh", SourceTerm: "杰作", CanonicalEnglish: "masterpiece"},
	{SourceLang: "zh", SourceTerm: "最佳质量", CanonicalEnglish: "best quality"},
	{SourceLang: "zh", SourceTerm: "景深", CanonicalEnglish: "depth of field"},
	{SourceLang: "zh", SourceTerm: "体积光", CanonicalEnglish: "volumetric lighting"},
	{SourceLang: "zh", SourceTerm: "赛博朋克", CanonicalEnglish: "cyberpunk"},
	{SourceLang: "zh", SourceTerm: "水彩", CanonicalEnglish: "watercolor"},
	{SourceLang: "zh", SourceTerm: "水墨画", CanonicalEnglish: "ink wash painting"},
	{SourceLang: "zh", SourceTerm: "低质量", CanonicalEnglish: "low quality"},
	// Japanese.
	{SourceLang: "ja", SourceTerm: "ゴシック建築", CanonicalEnglish: "Gothic architecture"},
	{SourceLang: "ja", SourceTerm: "飛び梁", CanonicalEnglish: "flying buttress"},
	{SourceLang: "ja", SourceTerm: "寺院建築", CanonicalEnglish: "temple architecture"},
	{SourceLang: "ja", SourceTerm: "鳥瞰図", CanonicalEnglish: "aerial view"},
	{SourceLang: "ja", SourceTerm: "被写界深度", CanonicalEnglish: "depth of field"},
	{SourceLang: "ja", SourceTerm: "浮世絵", CanonicalEnglish: "ukiyo-e"},
	{SourceLang: "ja", SourceTerm: "傑作", CanonicalEnglish: "masterpiece"},
	{SourceLang: "ja", SourceTerm: "最高品質", CanonicalEnglish: "best quality"},
	{SourceLang: "ja", SourceTerm: "水彩画", CanonicalEnglish: "watercolor painting"},
	// Korean.
	{SourceLang: "ko", SourceTerm: "고딕 건축", CanonicalEnglish: "Gothic architecture"},
	{SourceLang: "ko", SourceTerm: "한옥", CanonicalEnglish: "hanok"},
	{SourceLang: "ko", SourceTerm: "걸작", CanonicalEnglish: "masterpiece"},
	{SourceLang: "ko", SourceTerm: "피사계 심도", CanonicalEnglish: "depth of field"},
	// German and French compounds the general model tends to split.
	{SourceLang: "de", SourceTerm: "Strebebogen", CanonicalEnglish: "flying buttress"},
	{SourceLang: "de", SourceTerm: "Fachwerkhaus", CanonicalEnglish: "half-timbered house"},
	{SourceLang: "fr", SourceTerm: "arc-boutant", CanonicalEnglish: "flying buttress"},
	{SourceLang: "fr", SourceTerm: "clair-obscur", CanonicalEnglish: "chiaroscuro"},
	// English-side corrections applied after translation.
	{SourceLang: "en", SourceTerm: "flying buttresses wall", CanonicalEnglish: "flying buttresses"},
	{SourceLang: "en", SourceTerm: "best-quality", CanonicalEnglish: "best quality"},
	{SourceLang: "en", SourceTerm: "field depth", CanonicalEnglish: "depth of field"},
}
