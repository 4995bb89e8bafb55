package services

import "fmt"

// Prompt builders for the tutoring flow. Each call embeds the full document
// text; responses are expected to be short and directly usable.

func buildConceptExtractionPrompt(documentText string) string {
	return fmt.Sprintf(`You are an AI assistant helping to extract key concepts from an exam for a teaching-focused learning application. Your goal is to identify the most important concepts that a student would need to understand in order to effectively teach the material to someone else.

Analyze the following exam text and extract fundamental concepts that:
1. Are broad enough to encompass multiple exam questions
2. Are specific enough to be teachable in a focused conversation
3. Form the foundation for understanding the subject matter
4. Would allow a student to demonstrate comprehensive understanding through teaching

For each concept, identify which exam questions (by number) fall under that concept.

Return your response as a valid JSON object where:
- Keys are the concept names
- Values are arrays of question numbers that relate to that concept
Example response format: {"Concept 1": ["Q1", "Q2"], "Concept 2": ["Q3", "Q4", "Q5"]}

Exam Text:
%s`, documentText)
}

func buildOpeningQuestionPrompt(documentText, conceptName string) string {
	return fmt.Sprintf(`Given the following exam content and the concept '%s', generate one short, open-ended question an eager student might ask to start learning about this concept.

Focus specifically on aspects of '%s' that appear in the exam content.

Exam Content:
%s

Respond with just the question, without any additional text.`, conceptName, conceptName, documentText)
}

func buildFollowUpPrompt(documentText, conceptName string) string {
	if conceptName == "" {
		return fmt.Sprintf(`You are an eager student being taught the material below. Ask one short, open-ended follow-up question that keeps the conversation going.

Exam Content:
%s

Respond with just the question, without any additional text.`, documentText)
	}
	return fmt.Sprintf(`You are an eager student being taught the concept '%s'. Given the following exam content, ask one short, open-ended follow-up question that digs deeper into '%s'.

Exam Content:
%s

Respond with just the question, without any additional text.`, conceptName, conceptName, documentText)
}
