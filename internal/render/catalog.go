package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// English strings are the message keys; Japanese translations are
// registered here.
var japanese = map[string]string{
	"Review":                      "復習",
	"Details":                     "詳細",
	"Missed at: %s":               "間違えた日時: %s",
	"Missed %d times":             "間違えた回数: %d",
	"Answer: %s":                  "正解: %s",
	"Your answer: %s":             "回答: %s",
	"Correct":                     "正解",
	"Incorrect":                   "不正解",
	"%s min":                      "%s分",
	"N/A":                         "N/A",
	"Question":                    "問題",
	"Great job!":                  "素晴らしい！",
	"No missed questions. Keep up the good work!":                "間違えた問題はありません。継続して学習を続けましょう！",
	"No learning history yet":                                    "学習履歴がありません",
	"Your study sessions will appear here once you start.":       "学習を開始すると、ここに履歴が表示されます。",
	"No answer history yet":                                      "回答履歴がありません",
	"Your answers will appear here once you answer a question.":  "問題に回答すると、ここに履歴が表示されます。",
	"Failed to load missed questions.":                           "間違えた問題の取得に失敗しました",
	"Failed to load learning history.":                           "学習履歴の取得に失敗しました",
	"Failed to load answer history.":                             "回答履歴の取得に失敗しました",
	"Reload":                                                     "再読み込み",
	"Loading...":                                                 "読み込み中...",
	"Let's review this question":                                 "問題を復習しましょう",
	"Your browser does not support audio playback.":              "お使いのブラウザは音声再生をサポートしていません。",
	"Question:":                                                  "問題文:",
	"Correct answer:":                                            "正解:",
	"Choices:":                                                   "選択肢:",
	"Submit answer":                                              "回答する",
	"Start review":                                               "復習開始",
	"Close":                                                      "閉じる",
	"Missed questions":                                           "間違えた問題",
	"Study time (min)":                                           "総学習時間（分）",
	"Accuracy":                                                   "正答率",
	"Study days":                                                 "学習日数",
	"Learning history":                                           "学習履歴",
	"Answer history":                                             "回答履歴",
	"Score trend":                                                "スコア推移",
	"Review center":                                              "復習センター",
	"Welcome back, %s":                                           "おかえりなさい、%sさん",
	"Correct! Nice work.":                                        "正解です！",
	"Not quite. The correct answer is %s.":                       "不正解です。正解は %s です。",
	"Could not save your answer.":                                "回答の保存に失敗しました",
	"Could not start the review.":                                "復習の開始に失敗しました",
	"Could not load the question.":                               "問題の読み込みに失敗しました",
	"Please check your input.":                                   "入力内容に誤りがあります。確認してください。",
	"This page has expired. Please reload.":                      "ページの有効期限が切れました。再読み込みしてください。",
	"An unexpected error occurred. Please reload the page.":      "予期しないエラーが発生しました。ページを再読み込みしてください。",
	"A network error occurred.":                                  "ネットワークエラーが発生しました",
	"Too many requests. Please try again later.":                 "リクエストが多すぎます。しばらくしてから再度お試しください。",
}

func init() {
	for key, msg := range japanese {
		if err := message.SetString(language.Japanese, key, msg); err != nil {
			panic(err)
		}
	}
}
