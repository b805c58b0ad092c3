package app

import (
	"fmt"

	"github.com/shopspring/decimal"

	"fintrans/shared"
)

// User-facing message catalogue. Every non-fatal outcome maps to one of
// these; raw error text never reaches the end user.
const (
	msgUserNotFound    = "사용자를 찾을 수 없습니다."
	msgAccountNotFound = "계좌 정보를 찾을 수 없습니다."
	msgNeedTarget      = "송금할 대상을 입력해주세요."
	msgTargetNotFound  = "연락처에서 찾을 수 없습니다. 정확한 이름을 입력해주세요."
	msgNeedAmount      = "송금 금액을 입력해주세요."
	msgAmountInvalid   = "금액을 숫자로 입력해주세요."
	msgNeedCurrency    = "통화를 입력해주세요 (KRW/USD/JPY)."
	msgInsufficient    = "잔액이 부족합니다."
	msgNeedPassword    = "비밀번호를 입력해주세요."
	msgTransferFailed  = "비밀번호 5회 오류. 송금 실패."
	msgCancelled       = "송금이 취소되었습니다."
	msgInternalError   = "송금 처리 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요."
)

func msgRateNotFound(currency shared.Currency) string {
	return fmt.Sprintf("%s 환율 정보를 찾을 수 없습니다.", currency)
}

func msgConfirm(target string, amount decimal.Decimal, currency shared.Currency, amountBase decimal.Decimal) string {
	return fmt.Sprintf("%s에게 %s %s (%s원) 송금하시겠습니까? (y/n)",
		target, amount.String(), currency, amountBase.StringFixed(2))
}

func msgWrongPassword(remaining int) string {
	return fmt.Sprintf("비밀번호 오류. 남은 기회: %d", remaining)
}

func msgSuccess(newBalance decimal.Decimal) string {
	return fmt.Sprintf("송금이 완료되었습니다. 잔액: %s원", newBalance.StringFixed(2))
}
