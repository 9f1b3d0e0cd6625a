package stem

// wordClass is a bit set of Japanese word classes.
type wordClass uint16

const (
	classV1 wordClass = 1 << iota
	classV5
	classVS
	classVK
	classVZ
	classAdjI
	classIru

	classVerb = classV1 | classV5 | classVS | classVK | classVZ
)

var classNames = []struct {
	c    wordClass
	name string
}{
	{classV1, "v1"}, {classV5, "v5"}, {classVS, "vs"}, {classVK, "vk"},
	{classVZ, "vz"}, {classAdjI, "adj-i"}, {classIru, "iru"},
}

func (c wordClass) names() []string {
	var out []string
	for _, n := range classNames {
		if c&n.c != 0 {
			out = append(out, n.name)
		}
	}
	return out
}

// parseClasses maps a space-delimited Yomitan rules string to a class set.
// Subtypes such as "v5k" or "vs-i" collapse onto their base class.
func parseClasses(rules []string) wordClass {
	var c wordClass
	for _, r := range rules {
		switch {
		case r == "v1" || len(r) > 2 && r[:3] == "v1-":
			c |= classV1
		case len(r) >= 2 && r[:2] == "v5":
			c |= classV5
		case len(r) >= 2 && r[:2] == "vs":
			c |= classVS
		case r == "vk":
			c |= classVK
		case r == "vz":
			c |= classVZ
		case r == "adj-i":
			c |= classAdjI
		case r == "iru":
			c |= classIru
		}
	}
	return c
}

type deinflection struct {
	kanaIn   string
	kanaOut  string
	rulesIn  wordClass
	rulesOut wordClass
}

type ruleGroup struct {
	name  string
	rules []deinflection
}

func d(in, out string, rulesIn, rulesOut wordClass) deinflection {
	return deinflection{kanaIn: in, kanaOut: out, rulesIn: rulesIn, rulesOut: rulesOut}
}

// godan expands a godan conjugation whose endings differ per stem kana.
// endings maps the dictionary-form final kana to the inflected ending.
func godan(endings map[string]string, rulesIn wordClass) []deinflection {
	out := make([]deinflection, 0, len(endings))
	for _, k := range godanOrder {
		if e, ok := endings[k]; ok {
			out = append(out, d(e, k, rulesIn, classV5))
		}
	}
	return out
}

var godanOrder = []string{"う", "く", "ぐ", "す", "つ", "ぬ", "ぶ", "む", "る"}

// irregular appends the する/くる/ずる variants of an ending.
func irregular(suffix string, rulesIn wordClass) []deinflection {
	return []deinflection{
		d("じ"+suffix, "じる", rulesIn, classVZ),
		d("し"+suffix, "する", rulesIn, classVS),
		d("為"+suffix, "為る", rulesIn, classVS),
		d("き"+suffix, "くる", rulesIn, classVK),
		d("来"+suffix, "来る", rulesIn, classVK),
		d("來"+suffix, "來る", rulesIn, classVK),
	}
}

func concat(parts ...[]deinflection) []deinflection {
	var out []deinflection
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// iStem maps each godan final kana to its i-row (continuative) kana.
var iStem = map[string]string{
	"う": "い", "く": "き", "ぐ": "ぎ", "す": "し", "つ": "ち",
	"ぬ": "に", "ぶ": "び", "む": "み", "る": "り",
}

// aStem maps each godan final kana to its a-row (negative) kana.
var aStem = map[string]string{
	"う": "わ", "く": "か", "ぐ": "が", "す": "さ", "つ": "た",
	"ぬ": "な", "ぶ": "ば", "む": "ま", "る": "ら",
}

// eStem maps each godan final kana to its e-row kana.
var eStem = map[string]string{
	"う": "え", "く": "け", "ぐ": "げ", "す": "せ", "つ": "て",
	"ぬ": "ね", "ぶ": "べ", "む": "め", "る": "れ",
}

// oStem maps each godan final kana to its o-row (volitional) kana.
var oStem = map[string]string{
	"う": "お", "く": "こ", "ぐ": "ご", "す": "そ", "つ": "と",
	"ぬ": "の", "ぶ": "ぼ", "む": "も", "る": "ろ",
}

func withSuffix(row map[string]string, suffix string) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		out[k] = v + suffix
	}
	return out
}

// teForms lists the godan te/ta contractions with their voicing.
func teForms(te, de string, rulesIn wordClass) []deinflection {
	return []deinflection{
		d("い"+te, "く", rulesIn, classV5),
		d("い"+de, "ぐ", rulesIn, classV5),
		d("し"+te, "す", rulesIn, classV5),
		d("っ"+te, "う", rulesIn, classV5),
		d("っ"+te, "つ", rulesIn, classV5),
		d("っ"+te, "る", rulesIn, classV5),
		d("ん"+de, "ぬ", rulesIn, classV5),
		d("ん"+de, "ぶ", rulesIn, classV5),
		d("ん"+de, "む", rulesIn, classV5),
		d("いっ"+te, "いく", rulesIn, classV5),
		d("行っ"+te, "行く", rulesIn, classV5),
		d("逝っ"+te, "逝く", rulesIn, classV5),
		d("往っ"+te, "往く", rulesIn, classV5),
		d("おう"+te, "おう", rulesIn, classV5),
		d("こう"+te, "こう", rulesIn, classV5),
		d("そう"+te, "そう", rulesIn, classV5),
		d("とう"+te, "とう", rulesIn, classV5),
		d("請う"+te, "請う", rulesIn, classV5),
		d("乞う"+te, "乞う", rulesIn, classV5),
		d("恋う"+te, "恋う", rulesIn, classV5),
		d("問う"+te, "問う", rulesIn, classV5),
		d("負う"+te, "負う", rulesIn, classV5),
		d("沿う"+te, "沿う", rulesIn, classV5),
		d("添う"+te, "添う", rulesIn, classV5),
		d("副う"+te, "副う", rulesIn, classV5),
		d("厭う"+te, "厭う", rulesIn, classV5),
		d("のたもう"+te, "のたまう", rulesIn, classV5),
	}
}

// deinflectionRules is the inflection table, adapted from the rule set
// published with Yomichan/Yomitan.
var deinflectionRules = []ruleGroup{
	{name: "-ba", rules: concat(
		[]deinflection{d("ければ", "い", 0, classAdjI)},
		godan(withSuffix(eStem, "ば"), 0),
		[]deinflection{d("れば", "る", 0, classV1|classVK|classVS|classVZ)},
	)},
	{name: "-chau", rules: concat(
		[]deinflection{d("ちゃう", "る", classV5, classV1)},
		teForms("ちゃう", "じゃう", classV5),
		irregular("ちゃう", classV5),
	)},
	{name: "-chimau", rules: concat(
		[]deinflection{d("ちまう", "る", classV5, classV1)},
		teForms("ちまう", "じまう", classV5),
		irregular("ちまう", classV5),
	)},
	{name: "-shimau", rules: []deinflection{
		d("てしまう", "て", classV5, classIru),
		d("でしまう", "で", classV5, classIru),
	}},
	{name: "-nasai", rules: concat(
		[]deinflection{d("なさい", "る", 0, classV1)},
		godan(withSuffix(iStem, "なさい"), 0),
		irregular("なさい", 0),
	)},
	{name: "-sou", rules: concat(
		[]deinflection{d("そう", "い", 0, classAdjI), d("そう", "る", 0, classV1)},
		godan(withSuffix(iStem, "そう"), 0),
		irregular("そう", 0),
	)},
	{name: "-sugiru", rules: concat(
		[]deinflection{d("すぎる", "い", classV1, classAdjI), d("すぎる", "る", classV1, classV1)},
		godan(withSuffix(iStem, "すぎる"), classV1),
		irregular("すぎる", classV1),
	)},
	{name: "-tai", rules: concat(
		[]deinflection{d("たい", "る", classAdjI, classV1)},
		godan(withSuffix(iStem, "たい"), classAdjI),
		irregular("たい", classAdjI),
	)},
	{name: "-tara", rules: concat(
		[]deinflection{d("かったら", "い", 0, classAdjI), d("たら", "る", 0, classV1)},
		teForms("たら", "だら", 0),
		irregular("たら", 0),
	)},
	{name: "-tari", rules: concat(
		[]deinflection{d("かったり", "い", 0, classAdjI), d("たり", "る", 0, classV1)},
		teForms("たり", "だり", 0),
		irregular("たり", 0),
	)},
	{name: "-te", rules: concat(
		[]deinflection{d("くて", "い", classIru, classAdjI), d("て", "る", classIru, classV1)},
		teForms("て", "で", classIru),
		irregular("て", classIru),
	)},
	{name: "-toku", rules: concat(
		[]deinflection{d("とく", "る", classV5, classV1)},
		teForms("とく", "どく", classV5),
		irregular("とく", classV5),
	)},
	{name: "-zu", rules: concat(
		[]deinflection{d("ず", "る", 0, classV1), d("ぜず", "ずる", 0, classVZ), d("せず", "する", 0, classVS), d("為ず", "為る", 0, classVS), d("こず", "くる", 0, classVK), d("来ず", "来る", 0, classVK)},
		godan(withSuffix(aStem, "ず"), 0),
	)},
	{name: "-nu", rules: concat(
		[]deinflection{d("ぬ", "る", 0, classV1), d("ぜぬ", "ずる", 0, classVZ), d("せぬ", "する", 0, classVS), d("為ぬ", "為る", 0, classVS), d("こぬ", "くる", 0, classVK), d("来ぬ", "来る", 0, classVK)},
		godan(withSuffix(aStem, "ぬ"), 0),
	)},
	{name: "adv", rules: []deinflection{d("く", "い", 0, classAdjI)}},
	{name: "causative", rules: concat(
		[]deinflection{d("させる", "る", classV1, classV1), d("させる", "する", classV1, classVS), d("じさせる", "じる", classV1, classVZ), d("ぜさせる", "ずる", classV1, classVZ), d("為せる", "為る", classV1, classVS), d("こさせる", "くる", classV1, classVK), d("来させる", "来る", classV1, classVK)},
		godan(withSuffix(aStem, "せる"), classV1),
	)},
	{name: "causative passive", rules: godan(map[string]string{
		"う": "わされる", "く": "かされる", "ぐ": "がされる", "つ": "たされる",
		"ぬ": "なされる", "ぶ": "ばされる", "む": "まされる", "る": "らされる",
	}, classV1)},
	{name: "imperative", rules: concat(
		[]deinflection{d("ろ", "る", 0, classV1), d("よ", "る", 0, classV1), d("じろ", "じる", 0, classVZ), d("ぜよ", "ずる", 0, classVZ), d("しろ", "する", 0, classVS), d("せよ", "する", 0, classVS), d("為ろ", "為る", 0, classVS), d("為よ", "為る", 0, classVS), d("こい", "くる", 0, classVK), d("来い", "来る", 0, classVK)},
		godan(eStem, 0),
	)},
	{name: "imperative negative", rules: []deinflection{d("な", "", 0, classVerb)}},
	{name: "masu", rules: concat(
		[]deinflection{d("ます", "る", 0, classV1)},
		godan(withSuffix(iStem, "ます"), 0),
		irregular("ます", 0),
	)},
	{name: "masen", rules: concat(
		[]deinflection{d("ません", "る", 0, classV1)},
		godan(withSuffix(iStem, "ません"), 0),
		irregular("ません", 0),
	)},
	{name: "mashita", rules: concat(
		[]deinflection{d("ました", "る", 0, classV1)},
		godan(withSuffix(iStem, "ました"), 0),
		irregular("ました", 0),
	)},
	{name: "masen deshita", rules: concat(
		[]deinflection{d("ませんでした", "る", 0, classV1)},
		godan(withSuffix(iStem, "ませんでした"), 0),
		irregular("ませんでした", 0),
	)},
	{name: "mashou", rules: concat(
		[]deinflection{d("ましょう", "る", 0, classV1)},
		godan(withSuffix(iStem, "ましょう"), 0),
		irregular("ましょう", 0),
	)},
	{name: "negative", rules: concat(
		[]deinflection{d("くない", "い", classAdjI, classAdjI), d("ない", "る", classAdjI, classV1), d("じない", "じる", classAdjI, classVZ), d("しない", "する", classAdjI, classVS), d("為ない", "為る", classAdjI, classVS), d("こない", "くる", classAdjI, classVK), d("来ない", "来る", classAdjI, classVK), d("來ない", "來る", classAdjI, classVK)},
		godan(withSuffix(aStem, "ない"), classAdjI),
	)},
	{name: "noun", rules: []deinflection{d("さ", "い", 0, classAdjI)}},
	{name: "passive", rules: concat(
		godan(withSuffix(aStem, "れる"), classV1),
		[]deinflection{d("じされる", "じる", classV1, classVZ), d("ぜされる", "ずる", classV1, classVZ), d("される", "する", classV1, classVS), d("為れる", "為る", classV1, classVS), d("こられる", "くる", classV1, classVK), d("来られる", "来る", classV1, classVK), d("來られる", "來る", classV1, classVK)},
	)},
	{name: "past", rules: concat(
		[]deinflection{d("かった", "い", 0, classAdjI), d("た", "る", 0, classV1)},
		teForms("た", "だ", 0),
		irregular("た", 0),
	)},
	{name: "potential", rules: concat(
		godan(withSuffix(eStem, "る"), classV1),
		[]deinflection{d("これる", "くる", classV1, classVK), d("来れる", "来る", classV1, classVK), d("來れる", "來る", classV1, classVK)},
	)},
	{name: "potential or passive", rules: []deinflection{
		d("られる", "る", classV1, classV1),
		d("ざれる", "ずる", classV1, classVZ),
		d("ぜられる", "ずる", classV1, classVZ),
		d("せられる", "する", classV1, classVS),
		d("為られる", "為る", classV1, classVS),
		d("こられる", "くる", classV1, classVK),
		d("来られる", "来る", classV1, classVK),
		d("來られる", "來る", classV1, classVK),
	}},
	{name: "progressive or perfect", rules: []deinflection{
		d("ている", "て", classV1, classIru),
		d("ておる", "て", classV5, classIru),
		d("てる", "て", classV1, classIru),
		d("でいる", "で", classV1, classIru),
		d("でおる", "で", classV5, classIru),
		d("でる", "で", classV1, classIru),
		d("とる", "て", classV5, classIru),
		d("ないでいる", "ない", classV1, classAdjI),
	}},
	{name: "volitional", rules: concat(
		[]deinflection{d("よう", "る", 0, classV1), d("じよう", "じる", 0, classVZ), d("しよう", "する", 0, classVS), d("為よう", "為る", 0, classVS), d("こよう", "くる", 0, classVK), d("来よう", "来る", 0, classVK), d("來よう", "來る", 0, classVK)},
		godan(withSuffix(oStem, "う"), 0),
	)},
	{name: "-ki", rules: []deinflection{d("き", "い", 0, classAdjI)}},
	{name: "-ge", rules: []deinflection{d("げ", "い", 0, classAdjI), d("気", "い", 0, classAdjI)}},
}
