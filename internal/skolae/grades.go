package skolae

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-hub-api/internal/models"
)

const (
	defaultOutOf       = 20.0
	defaultCoefficient = 1.0
	unknownSubject     = "Matière inconnue"
	defaultDescription = "Évaluation"
)

// PeriodGrades maps the raw subjects of one year. Subjects without grades are
// dropped; when none remain the result is the disabled empty report.
func (n *Normalizer) PeriodGrades(raw []RawSubject, accountID string) models.PeriodGrades {
	withGrades := make([]RawSubject, 0, len(raw))
	for _, s := range raw {
		if len(s.Grades) > 0 {
			withGrades = append(withGrades, s)
		}
	}
	if len(withGrades) == 0 {
		return models.EmptyPeriodGrades(accountID)
	}

	now := n.now()
	subjects := make([]models.Subject, 0, len(withGrades))
	for _, s := range withGrades {
		subjects = append(subjects, n.mapSubject(s, accountID, now))
	}

	student, class := aggregateOverall(subjects)
	return models.PeriodGrades{
		CreatedByAccount: accountID,
		StudentOverall:   student,
		ClassAverage:     class,
		Subjects:         subjects,
	}
}

func (n *Normalizer) mapSubject(raw RawSubject, accountID string, now time.Time) models.Subject {
	name := raw.Course.TextOr(unknownSubject)
	id := raw.RCID.TextOr(name)

	grades := make([]models.Grade, 0, len(raw.Grades))
	for _, g := range raw.Grades {
		grades = append(grades, n.mapGrade(g, raw, id, name, accountID, now))
	}

	var student models.GradeScore
	if raw.Average.Present() {
		student = models.GradeScore{Value: parsedOrZero(raw.Average)}
	} else {
		student = weightedAverage(grades)
	}

	class := student
	if raw.CCAverage.Present() {
		class = models.GradeScore{Value: parsedOrZero(raw.CCAverage)}
	}

	return models.Subject{
		ID:             id,
		Name:           name,
		StudentAverage: student,
		ClassAverage:   class,
		OutOf:          models.OutOf{Value: defaultOutOf},
		Grades:         grades,
	}
}

func (n *Normalizer) mapGrade(raw RawGrade, subject RawSubject, subjectID, subjectName, accountID string, now time.Time) models.Grade {
	var score *models.GradeScore
	if raw.Mark.Present() {
		score = &models.GradeScore{Value: parsedOrZero(raw.Mark)}
	}

	coef := raw.Coef
	if !coef.Truthy() {
		coef = subject.Coef
	}

	givenAt := now
	dateText := strconv.FormatInt(now.UnixMilli(), 10)
	if raw.Date.Truthy() {
		dateText = raw.Date.TextOr(dateText)
		if t, ok := raw.Date.Time(n.loc); ok {
			givenAt = t
		}
	}

	description := defaultDescription
	if s, ok := raw.Title.Text(); ok {
		description = s
	} else if s, ok := raw.Description.Text(); ok {
		description = s
	}

	return models.Grade{
		ID:               raw.ID.TextOr(fmt.Sprintf("%s-%s", dateText, subjectName)),
		SubjectID:        subjectID,
		SubjectName:      subjectName,
		Description:      description,
		GivenAt:          givenAt,
		OutOf:            models.OutOf{Value: raw.OutOf.FloatOr(defaultOutOf)},
		Coefficient:      coef.FloatOr(defaultCoefficient),
		StudentScore:     score,
		Bonus:            raw.Bonus.Truthy(),
		Optional:         raw.Optional.Truthy(),
		CreatedByAccount: accountID,
	}
}

// weightedAverage rescales every usable grade to 20 points and weights it by
// its coefficient. Optional grades are counted like any other.
func weightedAverage(grades []models.Grade) models.GradeScore {
	var points, coefficients float64
	usable := 0
	for _, g := range grades {
		if g.StudentScore == nil || g.StudentScore.Disabled {
			continue
		}
		points += g.StudentScore.Value / g.OutOf.Value * defaultOutOf * g.Coefficient
		coefficients += g.Coefficient
		usable++
	}
	if usable == 0 || coefficients == 0 {
		return models.DisabledScore()
	}
	return models.GradeScore{Value: points / coefficients}
}

// aggregateOverall is the unweighted mean of subject averages. Disabled
// averages are left out of both sums and counts, per series.
func aggregateOverall(subjects []models.Subject) (student, class models.GradeScore) {
	var studentSum, classSum float64
	var studentCount, classCount int
	for _, s := range subjects {
		if !s.StudentAverage.Disabled {
			studentSum += s.StudentAverage.Value
			studentCount++
		}
		if !s.ClassAverage.Disabled {
			classSum += s.ClassAverage.Value
			classCount++
		}
	}
	return mean(studentSum, studentCount), mean(classSum, classCount)
}

func mean(sum float64, count int) models.GradeScore {
	if count == 0 {
		return models.DisabledScore()
	}
	return models.GradeScore{Value: sum / float64(count)}
}

func parsedOrZero(f Flex) float64 {
	v, _ := f.Float()
	return v
}

// GradePeriods maps /me/years onto academic-year periods running from
// September 1st to July 31st of the following year.
func (n *Normalizer) GradePeriods(raw []RawYear, accountID string) []models.Period {
	periods := make([]models.Period, 0, len(raw))
	for i, y := range raw {
		if !y.Valid {
			n.logger.Warn("skipping unusable Skolae year entry", zap.Int("index", i))
			continue
		}
		periods = append(periods, AcademicYear(y.Year, accountID, n.loc))
	}
	return periods
}

// AcademicYear builds the period for the school year starting in year.
func AcademicYear(year int, accountID string, loc *time.Location) models.Period {
	return models.Period{
		ID:               strconv.Itoa(year),
		Name:             fmt.Sprintf("Année %d", year),
		Start:            time.Date(year, time.September, 1, 0, 0, 0, 0, loc),
		End:              time.Date(year+1, time.July, 31, 0, 0, 0, 0, loc),
		CreatedByAccount: accountID,
	}
}
