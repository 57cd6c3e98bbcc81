package knowledge

import "context"

// SeedDocument is one entry of the bundled starter dataset.
type SeedDocument struct {
	Title    string
	Category string
	Content  string
}

// Seed ingests the bundled healthcare starter documents. Already-ingested
// documents are skipped via their stable ids. Returns the number of
// documents processed.
func (idx *Index) Seed(ctx context.Context) (int, error) {
	for _, d := range SeedDocuments() {
		_, err := idx.AddDocument(ctx, AddParams{
			Title:    d.Title,
			Content:  d.Content,
			Category: d.Category,
			Source:   "starter_dataset",
			Tags:     []string{"healthcare", "medical", "wellness"},
		})
		if err != nil {
			return 0, err
		}
	}
	return len(SeedDocuments()), nil
}

// SeedDocuments returns the bundled healthcare dataset.
func SeedDocuments() []SeedDocument {
	return seedData
}

var seedData = []SeedDocument{
	{
		Title:    "Hypertension Management",
		Category: "medical_condition",
		Content: `Hypertension, commonly known as high blood pressure, is a chronic medical condition characterized by elevated blood pressure in the arteries. It affects approximately 1.13 billion people worldwide and is a major risk factor for cardiovascular diseases.

The condition is typically diagnosed when blood pressure readings consistently exceed 140/90 mmHg. Risk factors include age, family history, obesity, physical inactivity, high salt intake, and excessive alcohol consumption.

Hypertension symptoms.

Most people with elevated blood pressure notice nothing at all, which is why hypertension is called the silent killer. When symptoms do appear they can include headaches, dizziness, blurred vision, shortness of breath, and nosebleeds. Because warning signs rarely appear before the condition has reached a dangerous stage, routine blood pressure screening is the only reliable way to detect it early.

Management strategies include lifestyle modifications such as regular exercise, weight management, reduced salt intake, and stress management. Medical treatment often involves antihypertensive medications prescribed by healthcare professionals. Common drug classes include diuretics, ACE inhibitors, angiotensin receptor blockers, and calcium channel blockers, each selected according to the patient's age, comorbidities, and response to therapy.

Dietary approaches have shown particular promise. The DASH eating plan emphasizes fruits, vegetables, whole grains, and low-fat dairy while limiting saturated fat and sodium, and has been demonstrated to lower systolic pressure within weeks. Limiting alcohol intake and quitting smoking provide additional cardiovascular benefit beyond blood pressure control.

Regular monitoring is essential, and patients should work closely with their healthcare team to develop personalized treatment plans. Early detection and management can significantly reduce the risk of complications such as heart disease, stroke, and kidney problems. Patients with consistently elevated readings should track their measurements at home and share the log with their care team.`,
	},
	{
		Title:    "Diabetes Prevention and Management",
		Category: "medical_condition",
		Content: `Diabetes mellitus is a group of metabolic disorders characterized by high blood sugar levels over a prolonged period. Type 2 diabetes, the most common form, can often be prevented through lifestyle modifications.

Prevention strategies include maintaining a healthy weight, engaging in regular physical activity, following a balanced diet rich in fruits and vegetables, and avoiding tobacco use. Early detection through regular screening is crucial, especially for individuals with risk factors such as family history, obesity, or sedentary lifestyle.

Management of diabetes involves blood sugar monitoring, medication adherence, dietary modifications, and regular exercise. Patients should work with healthcare professionals to develop comprehensive care plans that address both glycemic control and prevention of complications.

Complications can include cardiovascular disease, kidney damage, nerve damage, and eye problems. Regular check-ups and proactive management are essential for maintaining quality of life and preventing long-term complications.`,
	},
	{
		Title:    "Seasonal Influenza Management",
		Category: "treatment",
		Content: `Seasonal influenza, commonly known as the flu, is a highly contagious respiratory illness caused by influenza viruses. It affects millions of people worldwide each year, with peak activity typically occurring during fall and winter months.

Flu symptoms are more severe than cold symptoms and include sudden onset of high fever, severe body aches and muscle pain, extreme fatigue, dry cough, sore throat, headache, and sometimes gastrointestinal symptoms like nausea and vomiting. Symptoms typically last 1-2 weeks, with fatigue potentially persisting longer.

Treatment focuses on symptom management and includes rest, increased fluid intake, over-the-counter fever reducers and pain relievers, and antiviral medications if prescribed within 48 hours of symptom onset. Antiviral drugs can reduce severity and duration when taken early.

Prevention is crucial and includes annual flu vaccination, frequent hand washing, avoiding close contact with sick individuals, covering coughs and sneezes, and maintaining good overall health. The flu vaccine is recommended for everyone 6 months and older, especially high-risk groups like young children, elderly adults, pregnant women, and those with chronic health conditions.`,
	},
	{
		Title:    "Mental Health and Wellness",
		Category: "wellness",
		Content: `Mental health is an integral component of overall well-being, encompassing emotional, psychological, and social aspects of health. It affects how we think, feel, and act, influencing our ability to handle stress, relate to others, and make choices.

Maintaining good mental health involves practicing stress management techniques, maintaining social connections, getting adequate sleep, and engaging in regular physical activity. Mindfulness practices, meditation, and therapy can be valuable tools for mental wellness.

Recognizing signs of mental health challenges is crucial for early intervention. Symptoms may include persistent sadness, changes in sleep or appetite, withdrawal from social activities, and difficulty concentrating. Professional help should be sought when these symptoms persist or interfere with daily functioning.

Building resilience through healthy coping mechanisms, maintaining supportive relationships, and practicing self-care are essential for long-term mental health.`,
	},
	{
		Title:    "Nutrition and Preventive Care",
		Category: "prevention",
		Content: `Proper nutrition plays a fundamental role in preventive healthcare and overall well-being. A balanced diet provides essential nutrients that support immune function, maintain healthy body weight, and reduce the risk of chronic diseases.

Key components of a healthy diet include adequate intake of fruits and vegetables, whole grains, lean proteins, and healthy fats. Limiting processed foods, added sugars, and excessive salt intake is important for maintaining optimal health.

Regular preventive care, including annual check-ups and age-appropriate screenings, is essential for early detection of health issues. Vaccinations, dental care, and vision exams are important components of comprehensive preventive healthcare.

Lifestyle factors such as regular exercise, adequate sleep, stress management, and avoiding tobacco and excessive alcohol use complement good nutrition in maintaining overall health.`,
	},
}
