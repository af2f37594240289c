package risk

// TrainingMetrics are computed on the training batch itself. Held-out
// evaluation is the caller's job.
type TrainingMetrics struct {
	Accuracy     float64 `json:"accuracy"`
	Precision    float64 `json:"precision"`
	Recall       float64 `json:"recall"`
	Samples      int     `json:"samples"`
	ModelVersion string  `json:"model_version"`
}

// evaluate scores predictions against labels. Precision and recall are averaged
// over both classes weighted by each class's support; a class that was never
// predicted contributes zero precision.
func evaluate(labels, predicted []int) TrainingMetrics {
	n := len(labels)
	if n == 0 {
		return TrainingMetrics{}
	}
	var correct int
	var tp, fp, support [2]int
	for i, truth := range labels {
		guess := predicted[i]
		support[truth]++
		if guess == truth {
			correct++
			tp[guess]++
		} else {
			fp[guess]++
		}
	}

	var precision, recall float64
	for class := 0; class < 2; class++ {
		if support[class] == 0 {
			continue
		}
		weight := float64(support[class]) / float64(n)
		if predictedCount := tp[class] + fp[class]; predictedCount > 0 {
			precision += weight * float64(tp[class]) / float64(predictedCount)
		}
		recall += weight * float64(tp[class]) / float64(support[class])
	}
	return TrainingMetrics{
		Accuracy:  float64(correct) / float64(n),
		Precision: precision,
		Recall:    recall,
		Samples:   n,
	}
}

// LabelFromSeverity turns a reported reaction severity into the binary target.
func LabelFromSeverity(severity float64) int {
	if severity > 5 {
		return 1
	}
	return 0
}
