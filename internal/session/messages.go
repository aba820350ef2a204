package session

// User-facing notice texts.
const (
	msgAuthExpired  = "로그인이 만료되었어요. 다시 로그인해주세요."
	msgLoginFailed  = "로그인에 실패했습니다."
	msgKakaoFailed  = "카카오 로그인 처리 중 오류가 발생했습니다."
	msgKakaoTimeout = "백엔드 서버 응답 시간이 초과되었습니다. 백엔드 서버가 실행 중인지 확인해주세요."

	msgLoadDayFailed     = "해당 날짜의 미션을 불러오지 못했어요"
	msgRestoreFailed     = "미션 데이터를 불러오는데 실패했어요"
	msgUnknownMission    = "서버에 등록된 미션만 추가할 수 있어요."
	msgBlankSubmission   = "소주제를 선택해주세요."
	msgRoutineAdded      = "주간 루틴이 추가되었어요!"
	msgRoutineDuplicate  = "이미 추가된 루틴이에요."
	msgRoutineFailed     = "루틴 추가에 실패했어요"
	msgMissionAdded      = "미션이 추가되었어요!"
	msgMissionDuplicate  = "이미 추가된 미션이에요."
	msgMissionAddFailed  = "미션 추가에 실패했어요"
	msgDeleteFailed      = "미션 삭제에 실패했어요"
	msgToggleFailed      = "미션 상태를 바꾸지 못했어요"
	msgCatalogFailed     = "허용된 미션 목록을 불러오지 못했어요"
	msgProfileSaved      = "프로필이 저장되었습니다!"
	msgProfileSaveFailed = "프로필 저장에 실패했어요"

	msgGroupsFailed       = "그룹 미션을 불러오지 못했어요"
	msgRecommendedFailed  = "추천 그룹을 불러오지 못했어요"
	msgGroupFull          = "그룹 미션은 최대 3명까지 참여할 수 있어요"
	msgGroupLimit         = "그룹 미션은 최대 2개까지 참여할 수 있어요"
	msgAlreadyMember      = "이미 이 그룹에 참여 중입니다."
	msgJoinRejected       = "그룹 참여 조건을 만족하지 않습니다."
	msgGroupNotFound      = "그룹을 찾을 수 없습니다."
	msgJoinFailed         = "그룹 참여에 실패했어요"
	msgJoined             = "그룹에 참여했어요!"
	msgLeaveFailed        = "그룹 나가기에 실패했어요"
	msgCreateRejected     = "그룹 생성 조건을 만족하지 않습니다."
	msgCreateFailed       = "그룹 생성에 실패했어요"
	msgGroupCreated       = "그룹이 생성되고 참여되었어요!"
	msgCheckFailed        = "그룹 미션 인증에 실패했어요"
	msgDeleteGroupFailed  = "그룹 삭제에 실패했어요"
	msgFriendsFailed      = "친구 목록을 불러오지 못했어요"
	msgInviteNoGroup      = "초대할 그룹을 선택해주세요."
	msgInviteNoFriends    = "초대할 친구를 선택해주세요."
	msgInvitesSent        = "초대를 보냈어요!"
	msgInviteFailed       = "초대 전송에 실패했어요"
	msgInvitesLoadFailed  = "받은 초대를 불러오지 못했어요"
	msgInviteAccepted     = "초대를 수락했어요!"
	msgInviteAnswerFailed = "초대 응답에 실패했어요"
	msgRankingFailed      = "랭킹을 불러오지 못했어요"
)
