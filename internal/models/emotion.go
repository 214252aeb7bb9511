package models

// Emotion is one of the fixed diary emotion labels.
type Emotion string

const (
	EmotionFear          Emotion = "恐怖"
	EmotionSadness       Emotion = "悲しみ"
	EmotionAnger         Emotion = "怒り"
	EmotionFrustration   Emotion = "悔しい"
	EmotionWorthlessness Emotion = "無価値感"
	EmotionGuilt         Emotion = "罪悪感"
	EmotionLoneliness    Emotion = "寂しさ"
	EmotionShame         Emotion = "恥ずかしさ"

	EmotionJoy         Emotion = "嬉しい"
	EmotionGratitude   Emotion = "感謝"
	EmotionAchievement Emotion = "達成感"
	EmotionHappiness   Emotion = "幸せ"
)

var negativeEmotions = []Emotion{
	EmotionFear,
	EmotionSadness,
	EmotionAnger,
	EmotionFrustration,
	EmotionWorthlessness,
	EmotionGuilt,
	EmotionLoneliness,
	EmotionShame,
}

var positiveEmotions = []Emotion{
	EmotionJoy,
	EmotionGratitude,
	EmotionAchievement,
	EmotionHappiness,
}

// AllEmotions returns every emotion, negative ones first.
func AllEmotions() []Emotion {
	out := make([]Emotion, 0, len(negativeEmotions)+len(positiveEmotions))
	out = append(out, negativeEmotions...)
	return append(out, positiveEmotions...)
}

// NegativeEmotions returns the negative half of the emotion set.
func NegativeEmotions() []Emotion {
	return append([]Emotion(nil), negativeEmotions...)
}

// PositiveEmotions returns the positive half of the emotion set.
func PositiveEmotions() []Emotion {
	return append([]Emotion(nil), positiveEmotions...)
}

func (e Emotion) IsValid() bool {
	for _, v := range negativeEmotions {
		if v == e {
			return true
		}
	}
	return e.IsPositive()
}

func (e Emotion) IsPositive() bool {
	for _, v := range positiveEmotions {
		if v == e {
			return true
		}
	}
	return false
}

func (e Emotion) String() string {
	return string(e)
}
