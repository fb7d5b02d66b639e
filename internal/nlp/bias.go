package nlp

// NormalizeBias はゼロショット分類の候補ラベルを表示用ラベルに正規化する。
// liberal/left-wing → left-leaning、conservative/right-wing → right-leaning、
// それ以外はneutralに落とす。マッピングは検証済みのバイアス分類体系ではなく、
// 候補ラベル集合と対で運用する設定上の取り決めである。
func NormalizeBias(label string) string {
	switch label {
	case "liberal", "left-wing":
		return "left-leaning"
	case "conservative", "right-wing":
		return "right-leaning"
	default:
		return "neutral"
	}
}
