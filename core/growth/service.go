package growth

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Korean)

// FormatWon renders amount the way the reward cards show it, eg. ₩25,000.
func FormatWon(amount int) string {
	return printer.Sprintf("₩%d", amount)
}

// AttendancePoints gives the full 30 up to one absence, then prorates the remaining 12 weeks.
func AttendancePoints(absences int) float64 {
	if absences <= 1 {
		return 30
	}
	return math.Max(0, 30*float64(13-absences)/12)
}

func EvangelismPoints(people int) int {
	if pts := 5 * people; pts < 15 {
		return pts
	}
	return 15
}

func TierFor(total int) Tier {
	switch {
	case total >= sScore:
		return Tier{Code: TierS, Name: "분기 1위 유력 (S등급)", Description: "25,000원 상당 혜택 대상자!", Reward: 25000, RewardText: FormatWon(25000)}
	case total >= passScore:
		return Tier{Code: TierPass, Name: "기본 선물 확정 (Pass)", Description: "5,000원 상당 선물 획득!", Reward: 5000, RewardText: FormatWon(5000)}
	default:
		return Tier{Code: TierFail, Name: "격려 대상 (Fail)", Description: "조금만 더 힘내세요! (70점 커트라인)"}
	}
}

// Calculate validates in and scores it.
func Calculate(in Input) (Score, error) {
	if err := in.Validate(); err != nil {
		return Score{}, err
	}

	att := AttendancePoints(in.Absences)
	evan := EvangelismPoints(in.Evangelism)
	sum := att + float64(in.Bible+in.Prayer+evan+in.Service+in.Special)
	total := int(math.Floor(sum + 0.5))

	return Score{
		Attendance: att,
		Bible:      in.Bible,
		Prayer:     in.Prayer,
		Evangelism: evan,
		Service:    in.Service,
		Special:    in.Special,
		Total:      total,
		Tier:       TierFor(total),
	}, nil
}

// GetCriteria returns the static scoring rules and rewards.
func GetCriteria() Criteria {
	return Criteria{
		Criteria: []Criterion{
			{Title: "주일 오후 모임", Points: 30, Description: "1회 결석까지는 만점(30점). 이후 비례 감점."},
			{Title: "성경 통독", Points: 20, Description: "갓피플 성경앱 기준 '밀린 날짜' 0일 시 만점."},
			{Title: "주중 기도회", Points: 15, Description: "분기별 공지되는 기준에 따라 점수 부여."},
			{Title: "전도 및 정착", Points: 15, Description: "새가족 1명당 5점 (최대 15점)"},
			{Title: "봉사", Points: 10, Description: "매우 우수 (10), 보통 (7), 노력 필요 (3)"},
			{Title: "사역자 평가", Points: 10, Description: "매우 우수 (10), 보통 (7), 노력 필요 (3)"},
		},
		Rewards: []Reward{
			{Title: "분기 전체 1위", Condition: "기본 선물 + 2만원 추가 상품권", Amount: 25000, AmountText: FormatWon(25000)},
			{Title: "성장 격려상", Condition: "70점 통과자 전원 (최대 12명)", Amount: 5000, AmountText: FormatWon(5000)},
			{Title: "담당 사역자 특별상", Condition: "영적 성장 및 헌신 지체", Amount: 20000, AmountText: FormatWon(20000)},
		},
		Special: []Criterion{
			{Title: "한 영혼 사랑", Description: "장결자 연락, 소외된 지체 케어 등 화평을 위해 애쓰는 피스메이커"},
			{Title: "영적 성장 열정", Description: "신앙 고민 공유, 말씀과 기도 생활에 뚜렷한 진전을 보이는 지체"},
		},
	}
}
