// Package dedup 把多个来源抓到的原始线索合并成唯一集合。
//
// 合并策略是多键匹配 + "信息多者胜"：每条线索用来源链接、规范化名称
// (和官网地址) 作为候选键，命中任意一个键就认为是同一家公司；
// 描述更长的版本会顶替旧版本，并接管旧版本注册过的全部键。
package dedup

import (
	"sort"
	"strings"

	"dealflow/internal/domain"
)

// Merge 对一批线索去重，返回唯一线索列表 (按首次注册顺序)
// 永远不会失败：字段残缺的线索按它有的键参与合并
//
// 结果集定义为键映射里不同取值的集合：某条线索的键被跨键顶替
// 全部夺走后，它就不再出现在结果里
func Merge(deals []*domain.Deal) []*domain.Deal {
	byKey := make(map[string]*domain.Deal)
	// 记录每个胜者注册过的键，顶替时要把这些键也指到新版本上
	keysOf := make(map[*domain.Deal][]string)
	// 首次注册序号，保证输出顺序确定；顶替者继承被顶替者的序号
	order := make(map[*domain.Deal]int)
	seq := 0

	for _, deal := range deals {
		if deal == nil {
			continue
		}
		keys := candidateKeys(deal)

		// 按顺序探测候选键，第一个命中的键决定冲突对象
		var existing *domain.Deal
		for _, k := range keys {
			if found, ok := byKey[k]; ok {
				existing = found
				break
			}
		}

		if existing == nil {
			for _, k := range keys {
				byKey[k] = deal
			}
			keysOf[deal] = keys
			order[deal] = seq
			seq++
			continue
		}

		// 描述严格更长才顶替，等长保留已有胜者
		if len(deal.Description) <= len(existing.Description) {
			continue
		}

		merged := unionKeys(keysOf[existing], keys)
		for _, k := range merged {
			byKey[k] = deal
		}
		keysOf[deal] = merged
		delete(keysOf, existing)

		order[deal] = order[existing]
		delete(order, existing)
	}

	// 从映射取值收集结果；被顶替掏空的旧胜者自然被排除
	seen := make(map[*domain.Deal]struct{}, len(byKey))
	var winners []*domain.Deal
	for _, deal := range byKey {
		if _, ok := seen[deal]; ok {
			continue
		}
		seen[deal] = struct{}{}
		winners = append(winners, deal)
	}
	sort.Slice(winners, func(i, j int) bool {
		return order[winners[i]] < order[winners[j]]
	})
	return winners
}

// candidateKeys 计算一条线索的识别键，按置信度排序：
// 来源链接 > 规范化名称 > 官网地址
// 名称键总是生成，空名称会退化成 "" 键——多条无名线索可能因此
// 被错误合并，这是已知边界情况，保持与上游行为一致
func candidateKeys(deal *domain.Deal) []string {
	var keys []string
	if deal.SourceURL != "" {
		keys = append(keys, deal.SourceURL)
	}
	keys = append(keys, strings.ToLower(strings.TrimSpace(deal.StartupName)))
	if deal.Website != "" {
		keys = append(keys, deal.Website)
	}
	return keys
}

func unionKeys(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, k := range append(append([]string(nil), a...), b...) {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
